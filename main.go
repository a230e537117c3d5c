package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/intakehq/autoflow/agent"
	"github.com/intakehq/autoflow/analytics"
	"github.com/intakehq/autoflow/config"
	"github.com/intakehq/autoflow/flow"
	"github.com/intakehq/autoflow/logger"
	"github.com/intakehq/autoflow/metadata"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type cfg struct {
	config.Config
}
type cli struct {
	cfg cfg
}

func setupFlags(cmd *cobra.Command) error {
	flags := cmd.PersistentFlags()
	flags.String("config-file", "", "Path to config file.")
	flags.String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	flags.String("namespace", "autoflow", "namespace used in storage")
	flags.Int("http-port", 8080, "http port for rest endpoints")
	flags.Int("grpc-port", 8099, "grpc port for event dispatch")
	flags.String("storage-impl", "redis", "implementation of underline storage (redis|memory)")
	flags.String("notifier-impl", "log", "implementation of notification delivery (log|redis)")
	flags.String("log-level", "info", "log level")
	flags.Int("dispatch-parallelism", 1, "workflows of one event run concurrently")
	flags.Int("max-depth", flow.DEFAULT_MAX_DEPTH, "maximum traversal depth of a workflow run")
	flags.Int("max-steps", flow.DEFAULT_MAX_STEPS, "maximum nodes visited by a workflow run")
	flags.Int("async-capacity", 512, "queue size for asynchronous events, 0 disables async dispatch")
	flags.Duration("flow-cache-ttl", 0, "how long compiled workflows are cached, 0 caches until changed")
	flags.String("analytics-file", "", "file receiving run analytics, empty disables them")
	return viper.BindPFlags(flags)
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	var err error

	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err = viper.ReadInConfig(); err != nil {
			// it's ok if config file doesn't exist
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return err
			}
		}
	}

	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.GrpcPort = viper.GetInt("grpc-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.NotifierType = config.NotifierType(viper.GetString("notifier-impl"))
	c.cfg.LogLevel = viper.GetString("log-level")
	c.cfg.DispatchConfig.Parallelism = viper.GetInt("dispatch-parallelism")
	c.cfg.DispatchConfig.MaxDepth = viper.GetInt("max-depth")
	c.cfg.DispatchConfig.MaxSteps = viper.GetInt("max-steps")
	c.cfg.DispatchConfig.AsyncCapacity = viper.GetInt("async-capacity")
	c.cfg.FlowCacheTTL = viper.GetDuration("flow-cache-ttl")
	c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{CollectorType: analytics.NOOP_DATA_COLLECTOR}
	if file := viper.GetString("analytics-file"); file != "" {
		c.cfg.AnalyticsConfig = analytics.DataCollectorConfig{FileName: file, CollectorType: analytics.LOG_FILE_DATA_COLLECTOR}
	}
	return logger.Init(c.cfg.LogLevel)
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	defer logger.Sync()
	agent, err := agent.New(c.cfg.Config)
	if err != nil {
		return err
	}
	if err = agent.Start(); err != nil {
		return err
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return agent.Shutdown()
}

// load stores every definition of a file through the same validation path as the API.
func (c *cli) load(cmd *cobra.Command, args []string) error {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	defs, err := metadata.LoadDefinitions(file)
	if err != nil {
		return err
	}
	storage, closeFn, err := agent.OpenMetadataStorage(c.cfg.Config)
	if err != nil {
		return err
	}
	defer closeFn()
	svc := metadata.NewMetadataService(storage, 0)

	failed := 0
	for _, def := range defs {
		result, err := svc.SaveFlow(context.Background(), def)
		report(cmd, def.Scope, def.Id, result)
		if err != nil {
			logger.Error("workflow not loaded", zap.String("scope", def.Scope), zap.String("workflow", def.Id), zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d workflows not loaded", failed, len(defs))
	}
	return nil
}

func (c *cli) validate(cmd *cobra.Command, args []string) error {
	file, err := cmd.Flags().GetString("file")
	if err != nil {
		return err
	}
	defs, err := metadata.LoadDefinitions(file)
	if err != nil {
		return err
	}
	invalid := 0
	for i := range defs {
		result := flow.Validate(&defs[i])
		report(cmd, defs[i].Scope, defs[i].Id, result)
		if result.HasErrors() {
			invalid++
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d workflows are invalid", invalid, len(defs))
	}
	return nil
}

func report(cmd *cobra.Command, scope string, id string, result *flow.ValidationResult) {
	out := cmd.OutOrStdout()
	status := "ok"
	if result.HasErrors() {
		status = "invalid"
	}
	fmt.Fprintf(out, "%s/%s: %s\n", scope, id, status)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  error: %s\n", e)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:               "autoflow",
		Short:             "document workflow automation engine",
		PersistentPreRunE: cli.setupConfig,
		RunE:              cli.run,
		SilenceUsage:      true,
	}
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "validate and store workflow definitions from a yaml or json file",
		RunE:  cli.load,
	}
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "validate workflow definitions from a yaml or json file",
		RunE:  cli.validate,
	}
	for _, sub := range []*cobra.Command{loadCmd, validateCmd} {
		sub.Flags().StringP("file", "f", "", "definition file")
		if err := sub.MarkFlagRequired("file"); err != nil {
			log.Fatal(err)
		}
		cmd.AddCommand(sub)
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
