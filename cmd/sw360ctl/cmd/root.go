package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sw360-console/config"
	"sw360-console/httpclient"
	"sw360-console/logger"
	"sw360-console/session"
	"sw360-console/sw360"
)

// globalFlags 는 모든 하위 명령이 공유하는 플래그이다.
type globalFlags struct {
	ConfigPath string
	APIURL     string
	AuthURL    string
	Token      string
	LogLevel   string
}

// cli 는 PersistentPreRunE 에서 만들어져 하위 명령에 전달된다.
type cli struct {
	cfg    config.AppConfig
	client *sw360.Client
	token  string
}

func (c *cli) credential() (session.Credential, error) {
	if c.token == "" {
		return session.Credential{}, fmt.Errorf("no access token: run `sw360ctl login` and export SW360_TOKEN, or pass --token")
	}
	return session.Credential{AccessToken: c.token}, nil
}

func NewRootCommand() *cobra.Command {
	var flags globalFlags
	app := &cli{}

	root := &cobra.Command{
		Use:   "sw360ctl",
		Short: "sw360ctl: command line companion of the SW360 console",
		Long: `sw360ctl talks to the same SW360 REST API as the console.
It lists resources with the console's paging rules, updates projects and
runs a browser smoke test against a running console.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags.ConfigPath)
			if err != nil {
				return err
			}
			if flags.APIURL != "" {
				cfg.Backend.BaseURL = flags.APIURL
			}
			if flags.AuthURL != "" {
				cfg.Backend.AuthURL = flags.AuthURL
			}
			level := cfg.Logging.Level
			if flags.LogLevel != "" {
				level = flags.LogLevel
			}
			logger.Init(level)

			httpCfg := httpclient.Config{Timeout: cfg.Backend.Timeout}
			credentialCfg := httpclient.Config{Timeout: cfg.Backend.Timeout, Redact: true}
			app.cfg = cfg
			app.client = sw360.NewClient(
				httpclient.NewBaseClient(cfg.Backend.BaseURL, httpCfg),
				httpclient.NewBaseClient(cfg.Backend.AuthURL, credentialCfg),
			)
			app.token = flags.Token
			if app.token == "" {
				app.token = os.Getenv("SW360_TOKEN")
			}
			return nil
		},
	}

	fs := root.PersistentFlags()
	fs.StringVarP(&flags.ConfigPath, "config", "c", "", "path to config.yaml (default: nearest config.yaml above the working directory)")
	fs.StringVar(&flags.APIURL, "api-url", "", "SW360 resource API base URL")
	fs.StringVar(&flags.AuthURL, "auth-url", "", "SW360 authorization server URL")
	fs.StringVarP(&flags.Token, "token", "t", "", "SW360 access token (default: $SW360_TOKEN)")
	fs.StringVar(&flags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		loginCommand(app),
		listCommand(app),
		projectCommand(app),
		smokeCommand(),
	)
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// loadConfig 는 config.yaml 이 없어도 기본값과 환경 변수로 동작한다.
func loadConfig(path string) (config.AppConfig, error) {
	if path == "" {
		if base := config.GetBasePath(); base != "" {
			path = filepath.Join(base, config.CONFIG_FILE)
		}
	}
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return config.AppConfig{}, fmt.Errorf("read config: %w", err)
		}
		data = b
	}
	return config.Parse(data)
}
