package web

import (
	"html/template"
	"math"

	"clearspeak/db"
)

// ChartHeightPx is the fixed pixel height of the dashboard score chart.
const ChartHeightPx = 160

// ChartBarCount caps how many recent sessions the chart shows.
const ChartBarCount = 10

type ChartBar struct {
	Score    float64
	HeightPx int
	Color    string
	Label    string
}

// ScoreColor bands a score for display: 80 and up is green, 60-79 yellow,
// everything below red.
func ScoreColor(score float64) string {
	switch {
	case score >= 80:
		return "green"
	case score >= 60:
		return "yellow"
	default:
		return "red"
	}
}

// BarHeight scales a score to chart pixels, clamped to the chart height.
func BarHeight(score float64) int {
	h := int(math.Round(score / 100 * ChartHeightPx))
	if h < 0 {
		return 0
	}
	if h > ChartHeightPx {
		return ChartHeightPx
	}
	return h
}

// ChartBars builds the score chart from sessions ordered newest first, as
// the store returns them. At most the ten most recent sessions appear,
// oldest to newest.
func ChartBars(sessions []db.Session) []ChartBar {
	recent := sessions
	if len(recent) > ChartBarCount {
		recent = recent[:ChartBarCount]
	}

	bars := make([]ChartBar, len(recent))
	for i, sess := range recent {
		// Reverse into chronological order.
		bars[len(recent)-1-i] = ChartBar{
			Score:    sess.Score,
			HeightPx: BarHeight(sess.Score),
			Color:    ScoreColor(sess.Score),
			Label:    sess.CreatedAt.Format("Jan 2"),
		}
	}
	return bars
}

var barClasses = map[string]string{
	"green":  "bg-green-500",
	"yellow": "bg-yellow-400",
	"red":    "bg-red-500",
}

var dashboardTemplate = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"barClass": func(color string) string { return barClasses[color] },
}).Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Practice Dashboard</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-gray-100">
    <div class="container mx-auto px-4 py-8">
        <h1 class="text-3xl font-bold mb-6">Practice Dashboard</h1>

        <div class="grid grid-cols-2 md:grid-cols-4 gap-4 mb-8">
            <div class="bg-white shadow rounded-lg p-4">
                <p class="text-gray-600 text-sm">Sessions</p>
                <p class="text-2xl font-bold">{{.Stats.TotalSessions}}</p>
            </div>
            <div class="bg-white shadow rounded-lg p-4">
                <p class="text-gray-600 text-sm">Average Score</p>
                <p class="text-2xl font-bold">{{printf "%.2f" .Stats.AverageScore}}</p>
            </div>
            <div class="bg-white shadow rounded-lg p-4">
                <p class="text-gray-600 text-sm">Total Words</p>
                <p class="text-2xl font-bold">{{.Stats.TotalWords}}</p>
            </div>
            <div class="bg-white shadow rounded-lg p-4">
                <p class="text-gray-600 text-sm">Average Pace</p>
                <p class="text-2xl font-bold">{{printf "%.2f" .Stats.AverageWPM}} wpm</p>
            </div>
        </div>

        <div class="bg-white shadow rounded-lg p-4 mb-8">
            <h2 class="text-xl font-bold mb-4">Recent Scores</h2>
            <div class="flex items-end gap-2" style="height: {{.ChartHeightPx}}px">
                {{range .Bars}}
                <div class="flex-1 {{barClass .Color}} rounded-t"
                     style="height: {{.HeightPx}}px"
                     title="{{.Label}}: {{printf "%.0f" .Score}}"></div>
                {{else}}
                <p class="text-gray-500">No sessions yet. Record one to see your progress.</p>
                {{end}}
            </div>
        </div>

        <h2 class="text-xl font-bold mb-4">Sessions</h2>
        <div class="space-y-4">
            {{range .Sessions}}
            <div class="bg-white shadow rounded-lg p-4">
                <p class="text-gray-600 text-sm">{{.CreatedAt.Format "2006-01-02 15:04:05"}}</p>
                <p class="text-lg font-bold">Score: {{printf "%.0f" .Score}}</p>
                <details>
                    <summary class="cursor-pointer text-blue-600 hover:text-blue-800">Details</summary>
                    <div class="mt-2 space-y-2">
                        <p class="italic">&ldquo;{{.Transcription}}&rdquo;</p>
                        <p class="text-sm text-gray-600">
                            {{.WordCount}} words &middot;
                            {{printf "%.1f" .SpeakingRateWPM}} wpm &middot;
                            {{printf "%.1f" .DurationSeconds}}s
                        </p>
                        <div class="bg-gray-100 p-2 rounded whitespace-pre-wrap">{{.AIFeedback}}</div>
                        <audio controls src="/audio/{{.ID}}?access_token={{$.Token}}"></audio>
                    </div>
                </details>
            </div>
            {{else}}
            <p class="text-gray-500">Nothing recorded yet.</p>
            {{end}}
        </div>
    </div>
</body>
</html>
`))

type dashboardData struct {
	Stats         db.Stats
	Bars          []ChartBar
	Sessions      []db.Session
	Token         string
	ChartHeightPx int
}
