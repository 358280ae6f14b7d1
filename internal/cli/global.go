package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/citecheck/citecheck/internal/checker"
	"github.com/citecheck/citecheck/internal/client"
	"github.com/citecheck/citecheck/internal/config"
	"github.com/citecheck/citecheck/internal/events"
	"github.com/citecheck/citecheck/internal/store"
)

type GlobalOptions struct {
	ConfigFile string
	ServerUrl  string
	DataDir    string

	serverUrlSet bool
	dataDirSet   bool
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFile: config.DefaultConfigFile,
		ServerUrl:  config.DefaultServiceURL,
		DataDir:    config.DefaultDataDir,
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the configuration file")
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "Address of the validation backend")
	fs.StringVarP(&o.DataDir, "data-dir", "d", o.DataDir, "Directory holding the persistent client store")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	o.serverUrlSet = cmd.Flags().Changed("server-url")
	o.dataDirSet = cmd.Flags().Changed("data-dir")
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	return nil
}

// Runtime bundles everything a command needs to run the validation flow.
// Close releases the client store and flushes pending analytics events.
type Runtime struct {
	Config    *config.Config
	Store     *store.Store
	Validator client.Validator
	Service   *checker.Service
	producer  *events.EventProducer
}

func (r *Runtime) Close() {
	_ = r.producer.Close()
	_ = r.Store.Close()
}

// Runtime resolves the configuration (environment, then the config file when
// present, then explicitly given flags) and wires the store, HTTP client and
// service together.
func (o *GlobalOptions) Runtime() (*Runtime, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(o.ConfigFile); err == nil {
		if err := cfg.ParseConfigFile(o.ConfigFile); err != nil {
			return nil, err
		}
	}
	if o.serverUrlSet {
		cfg.ServiceURL = o.ServerUrl
	}
	if o.dataDirSet {
		cfg.DataDir = o.DataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	clientCfg := client.NewDefault()
	clientCfg.Service.Server = cfg.ServiceURL

	httpClient, err := client.NewHTTPClientFromConfig(clientCfg)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	validator := client.NewValidator(httpClient, clientCfg)
	producer := events.NewEventProducer(&events.StdoutWriter{})

	return &Runtime{
		Config:    cfg,
		Store:     s,
		Validator: validator,
		Service:   checker.NewService(cfg, s, validator, producer),
		producer:  producer,
	}, nil
}
