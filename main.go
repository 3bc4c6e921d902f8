package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"clearspeak/auth"
	"clearspeak/client"
	"clearspeak/coach"
	"clearspeak/db"
	"clearspeak/storage"
	"clearspeak/stt"
	"clearspeak/web"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/api/option"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)

	analyzeCmd.Flags().String("server", "http://localhost:8080", "Server URL to analyze against")
	sessionsCmd.Flags().String("user", "", "User ID to list sessions for")
	sessionsCmd.Flags().Int("limit", 20, "Maximum number of sessions to list")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(sessionsCmd)

	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL")
	rootCmd.PersistentFlags().
		String("deepgram-api-key", "", "Deepgram API key")
	rootCmd.PersistentFlags().
		String("gemini-api-key", "", "Google Cloud (Gemini) API key")
	rootCmd.PersistentFlags().String("auth-url", "", "Auth provider base URL")
	rootCmd.PersistentFlags().
		String("auth-anon-key", "", "Auth provider anonymous key")
	rootCmd.PersistentFlags().Int("port", 8080, "Web server port")
	rootCmd.PersistentFlags().
		String("upload-dir", "uploads", "Directory for stored recordings")
	rootCmd.PersistentFlags().String("static-dir", "static", "Directory for static assets")

	viper.BindPFlag(
		"database_url",
		rootCmd.PersistentFlags().Lookup("database-url"),
	)
	viper.BindPFlag(
		"deepgram_api_key",
		rootCmd.PersistentFlags().Lookup("deepgram-api-key"),
	)
	viper.BindPFlag(
		"gemini_api_key",
		rootCmd.PersistentFlags().Lookup("gemini-api-key"),
	)
	viper.BindPFlag("auth_url", rootCmd.PersistentFlags().Lookup("auth-url"))
	viper.BindPFlag(
		"auth_anon_key",
		rootCmd.PersistentFlags().Lookup("auth-anon-key"),
	)
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("upload_dir", rootCmd.PersistentFlags().Lookup("upload-dir"))
	viper.BindPFlag("static_dir", rootCmd.PersistentFlags().Lookup("static-dir"))
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stdout)
}

var rootCmd = &cobra.Command{
	Use:   "clearspeak",
	Short: "ClearSpeak is a speech practice coach",
	Long:  `ClearSpeak records speech practice sessions, transcribes them, scores the delivery, and tracks progress over time.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Run:   runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run pending database migrations",
	Run:   runMigrate,
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactively write a config file",
	Run:   runSetup,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a recorded audio file",
	Long:  `Upload a WAV file to a running server for transcription, scoring, and coach feedback.`,
	Args:  cobra.ExactArgs(1),
	Run:   runAnalyze,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List practice sessions in a table",
	Run:   runSessions,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) {
	mainLogger, httpLogger, hearLogger, dataLogger, coachLogger := createLoggers()
	ctx := context.Background()

	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		mainLogger.Fatal("missing DATABASE_URL or --database-url=")
	}
	deepgramAPIKey := viper.GetString("deepgram_api_key")
	if deepgramAPIKey == "" {
		mainLogger.Fatal("missing DEEPGRAM_API_KEY or --deepgram-api-key=")
	}
	geminiAPIKey := viper.GetString("gemini_api_key")
	if geminiAPIKey == "" {
		mainLogger.Fatal("missing GEMINI_API_KEY or --gemini-api-key=")
	}
	authURL := viper.GetString("auth_url")
	if authURL == "" {
		mainLogger.Fatal("missing AUTH_URL or --auth-url=")
	}

	store, err := db.Open(ctx, databaseURL, dataLogger)
	if err != nil {
		mainLogger.Fatal("open database", "error", err.Error())
	}
	defer store.Close()

	blobs, err := storage.New(viper.GetString("upload_dir"))
	if err != nil {
		mainLogger.Fatal("open upload directory", "error", err.Error())
	}

	transcriber := stt.NewDeepgramClient(deepgramAPIKey, hearLogger)

	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(geminiAPIKey))
	if err != nil {
		mainLogger.Fatal("create gemini client", "error", err.Error())
	}
	defer genaiClient.Close()
	feedback := coach.New(genaiClient, coachLogger)

	verifier := auth.NewClient(authURL, viper.GetString("auth_anon_key"), httpLogger)

	handler := web.NewHandler(
		store,
		blobs,
		transcriber,
		feedback,
		verifier,
		viper.GetString("static_dir"),
		httpLogger,
	)

	if err := handler.Serve(viper.GetInt("port")); err != nil {
		mainLogger.Fatal("start web server", "error", err.Error())
	}
}

func runMigrate(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger, _ := createLoggers()
	ctx := context.Background()

	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		mainLogger.Fatal("missing DATABASE_URL or --database-url=")
	}

	store, err := db.Open(ctx, databaseURL, dataLogger)
	if err != nil {
		mainLogger.Fatal("open database", "error", err.Error())
	}
	defer store.Close()

	if err := store.Migrate(ctx, dataLogger); err != nil {
		mainLogger.Fatal("run migrations", "error", err.Error())
	}

	mainLogger.Info("Migrations complete")
}

func runAnalyze(cmd *cobra.Command, args []string) {
	mainLogger, _, _, _, _ := createLoggers()
	ctx := context.Background()

	server, _ := cmd.Flags().GetString("server")
	token := viper.GetString("access_token")

	api := client.New(server, func() string { return token })
	recorder := client.NewRecorder(api, func() (client.CaptureDevice, error) {
		return client.NewFileDevice(args[0])
	})

	if err := recorder.Start(); err != nil {
		mainLogger.Fatal("open audio file", "error", err.Error())
	}
	for {
		err := recorder.Capture()
		if err == io.EOF {
			break
		}
		if err != nil {
			mainLogger.Fatal("read audio file", "error", err.Error())
		}
	}
	if err := recorder.Stop(); err != nil {
		mainLogger.Fatal("finalize audio", "error", err.Error())
	}

	if err := recorder.Analyze(ctx); err != nil {
		mainLogger.Fatal("analyze audio", "error", err.Error())
	}

	result := recorder.Result()
	fmt.Printf(
		"Score: %.1f  Words: %d  Rate: %.0f wpm\n\n",
		result.Score,
		result.WordCount,
		result.SpeakingRateWPM,
	)
	fmt.Printf("Transcription: %s\n", result.Transcription)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(62),
	)
	if err != nil {
		mainLogger.Fatal("create renderer", "error", err.Error())
	}
	rendered, err := renderer.Render(result.AIFeedback)
	if err != nil {
		mainLogger.Fatal("render feedback", "error", err.Error())
	}
	fmt.Print(rendered)
}

func runSessions(cmd *cobra.Command, args []string) {
	mainLogger, _, _, dataLogger, _ := createLoggers()
	ctx := context.Background()

	userID, _ := cmd.Flags().GetString("user")
	if userID == "" {
		mainLogger.Fatal("missing --user=")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	databaseURL := viper.GetString("database_url")
	if databaseURL == "" {
		mainLogger.Fatal("missing DATABASE_URL or --database-url=")
	}

	store, err := db.Open(ctx, databaseURL, dataLogger)
	if err != nil {
		mainLogger.Fatal("open database", "error", err.Error())
	}
	defer store.Close()

	sessions, err := store.RecentSessions(ctx, userID, limit)
	if err != nil {
		mainLogger.Fatal("fetch sessions", "error", err.Error())
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Created At", "Score", "Words", "WPM", "Duration"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, session := range sessions {
		table.Append([]string{
			session.ID,
			session.CreatedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.1f", session.Score),
			fmt.Sprintf("%d", session.WordCount),
			fmt.Sprintf("%.0f", session.SpeakingRateWPM),
			fmt.Sprintf("%.1f s", session.DurationSeconds),
		})
	}

	table.Render()
}

func createLoggers() (mainLogger, httpLogger, hearLogger, dataLogger, coachLogger *log.Logger) {
	logLevel := log.DebugLevel

	logger.SetLevel(logLevel)
	logger.SetReportCaller(true)
	logger.SetCallerFormatter(
		func(file string, line int, funcName string) string {
			path, err := filepath.Rel(".", file)
			if err != nil {
				path = file
			}
			return fmt.Sprintf("%s:%d", path, line)
		},
	)

	styles := log.DefaultStyles()
	styles.Prefix = styles.Prefix.MarginTop(1).
		Bold(false).Transform(func(s string) string {
		return strings.TrimSuffix(s, ":")
	})
	styles.Levels[log.InfoLevel] = styles.Levels[log.InfoLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].
		MaxWidth(6).
		MarginRight(1).
		Bold(false)
	styles.Message = styles.Message.Bold(true).Width(24)
	styles.Key = styles.Key.MarginLeft(1).
		Bold(false).
		Foreground(lipgloss.Color("#ff8800"))

	logger.SetStyles(styles)

	mainLogger = logger.With().WithPrefix("main")
	httpLogger = logger.With().WithPrefix("http")
	hearLogger = logger.With().WithPrefix("hear")
	dataLogger = logger.With().WithPrefix("data")
	coachLogger = logger.With().WithPrefix("coach")

	return
}
