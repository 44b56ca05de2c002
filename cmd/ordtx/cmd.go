package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bitfsorg/ordinals-go/bsv20"
	"github.com/bitfsorg/ordinals-go/config"
	"github.com/bitfsorg/ordinals-go/internal/metrics"
	"github.com/bitfsorg/ordinals-go/network"
	"github.com/bitfsorg/ordinals-go/ordinals"
	"github.com/bitfsorg/ordinals-go/paymail"
	"github.com/bitfsorg/ordinals-go/tx"
)

type RuntimeArguments struct {
	// DataDir: directory holding the config file.
	DataDir string
	// ConfigPath: config file; defaults to <datadir>/config.
	ConfigPath string
	// RequestPath: request JSON, "-" for stdin.
	RequestPath string
	// Broadcast: send the signed transaction to the node.
	Broadcast bool
	// MetricsFile: write build metrics here in the textfile exporter format.
	MetricsFile string
	// RPC: node connection overrides.
	RPC network.RPCConfig
	// Force: overwrite an existing config file on init.
	Force bool
}

func NewRuntimeArguments() *RuntimeArguments {
	return &RuntimeArguments{DataDir: config.DefaultDataDir(), RequestPath: "-"}
}

func (arguments *RuntimeArguments) MakeCmd() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:     "ordtx",
		Short:   "Builds and signs 1Sat Ordinals transactions.",
		Version: fmt.Sprintf("%s (%s)", version, gitHash),
		Long: `
ordtx builds signed BSV transactions for 1Sat Ordinals: inscriptions, ordinal
transfers, OrdLock listings and purchases, BSV-20 and BSV-21 token transfers,
deploys and burns. Each build reads a JSON request and prints the txid, the
raw transaction and the outputs left for the caller.

Settings are read from <datadir>/config and ORDTX_* environment variables.
`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&arguments.DataDir, "datadir", "d", arguments.DataDir, "Data directory")
	rootCmd.PersistentFlags().StringVarP(&arguments.ConfigPath, "config", "c", "", "Config file (default <datadir>/config)")

	var buildCmd = &cobra.Command{
		Use:       "build <op>",
		Short:     "Build and sign a transaction from a JSON request.",
		Long:      "Operations: " + strings.Join(operationNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: operationNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return arguments.build(cmd, args[0])
		},
	}
	buildCmd.Flags().StringVarP(&arguments.RequestPath, "request", "r", arguments.RequestPath, "Request JSON file, - for stdin")
	buildCmd.Flags().BoolVarP(&arguments.Broadcast, "broadcast", "b", false, "Broadcast the signed transaction")
	buildCmd.Flags().StringVarP(&arguments.MetricsFile, "metrics-file", "", "", "Write build metrics to this file")
	buildCmd.Flags().StringVarP(&arguments.RPC.URL, "rpc-url", "", "", "Node JSON-RPC URL")
	buildCmd.Flags().StringVarP(&arguments.RPC.User, "rpc-user", "", "", "Node JSON-RPC user")
	buildCmd.Flags().StringVarP(&arguments.RPC.Password, "rpc-password", "", "", "Node JSON-RPC password")

	var initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a default config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return arguments.initConfig(cmd)
		},
	}
	initCmd.Flags().BoolVarP(&arguments.Force, "force", "f", false, "Overwrite an existing config file")

	rootCmd.AddCommand(buildCmd, initCmd)
	return rootCmd
}

func (arguments *RuntimeArguments) configPath() string {
	if arguments.ConfigPath != "" {
		return arguments.ConfigPath
	}
	return config.ConfigPath(arguments.DataDir)
}

func (arguments *RuntimeArguments) loadConfig() (config.Config, error) {
	cfg, err := config.LoadOrDefault(arguments.configPath())
	if err != nil {
		return config.Config{}, err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (arguments *RuntimeArguments) initConfig(cmd *cobra.Command) error {
	path := arguments.configPath()
	if _, err := os.Stat(path); err == nil && !arguments.Force {
		return fmt.Errorf("ordtx: %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ordtx: stat %s: %w", path, err)
	}
	cfg := config.DefaultConfig()
	cfg.DataDir = arguments.DataDir
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

// node connects to the configured node. The loaded config already carries
// the ORDTX_RPC_* overrides, so it stands in for the environment layer.
func (arguments *RuntimeArguments) node(cfg config.Config, log *zap.Logger) (network.BlockchainService, error) {
	env := map[string]string{
		network.EnvRPCURL:      cfg.RPCURL,
		network.EnvRPCUser:     cfg.RPCUser,
		network.EnvRPCPassword: cfg.RPCPassword,
	}
	rpcCfg, err := network.ResolveConfig(&arguments.RPC, env, cfg.Network)
	if err != nil {
		return nil, err
	}
	return network.NewRPCClient(*rpcCfg).WithLogger(log), nil
}

func paymailClient(cfg config.Config, log *zap.Logger) *paymail.Client {
	c := &paymail.Client{Logger: log}
	if cfg.DNSSECUpstream != "" {
		c.Resolver = paymail.NewDNSSECResolver(cfg.DNSSECUpstream)
	}
	return c
}

// buildOutput is printed on success.
type buildOutput struct {
	TxID           string             `json:"txid"`
	RawTx          string             `json:"rawtx"`
	Fee            uint64             `json:"fee"`
	SpentOutpoints []string           `json:"spentOutpoints"`
	PayChange      *tx.UTXO           `json:"payChange,omitempty"`
	TokenChange    []*bsv20.TokenUTXO `json:"tokenChange,omitempty"`
	TokenListings  []*bsv20.TokenUTXO `json:"tokenListings,omitempty"`
	TokenID        string             `json:"tokenID,omitempty"`
	Broadcast      bool               `json:"broadcast,omitempty"`
}

func newBuildOutput(res *ordinals.Result) *buildOutput {
	return &buildOutput{
		TxID:           res.TxID,
		RawTx:          res.Tx.Hex(),
		Fee:            res.Fee,
		SpentOutpoints: res.SpentOutpoints,
		PayChange:      res.PayChange,
		TokenChange:    res.TokenChange,
		TokenListings:  res.TokenListings,
		TokenID:        res.TokenID,
	}
}

func (arguments *RuntimeArguments) build(cmd *cobra.Command, op string) error {
	run, ok := operations[op]
	if !ok {
		return fmt.Errorf("ordtx: unknown operation %q (want one of %s)", op, strings.Join(operationNames(), ", "))
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := arguments.loadConfig()
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck
	log = log.With(zap.String("op", op))

	req, err := ReadRequest(arguments.RequestPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	opts, err := req.options()
	if err != nil {
		return err
	}
	if opts.SatsPerKb == 0 {
		opts.SatsPerKb = cfg.FeeRate
	}
	opts.Testnet = cfg.Testnet()
	opts.Logger = log
	if cfg.SignerHost != "" {
		opts.Signer = &tx.RemoteSigner{Host: cfg.SignerHost, AuthToken: cfg.SignerToken}
	}

	var node network.BlockchainService
	e := &env{
		opts:    opts,
		paymail: paymailClient(cfg, log),
		node: func() (network.BlockchainService, error) {
			if node == nil {
				n, err := arguments.node(cfg, log)
				if err != nil {
					return nil, err
				}
				node = n
			}
			return node, nil
		},
	}

	if len(opts.PaymentUTXOs) == 0 {
		if opts.PaymentKey == nil {
			return fmt.Errorf("%w: no utxos given and no paymentPk to look them up", tx.ErrMissingKey)
		}
		n, err := e.node()
		if err != nil {
			return err
		}
		addr, err := tx.AddressForKey(opts.PaymentKey, opts.Testnet)
		if err != nil {
			return err
		}
		if e.opts.PaymentUTXOs, err = network.FetchPaymentUTXOs(ctx, n, addr, opts.PaymentKey); err != nil {
			return err
		}
		log.Debug("fetched payment utxos", zap.String("address", addr), zap.Int("count", len(e.opts.PaymentUTXOs)))
	} else if err := e.complete(ctx, opts.PaymentUTXOs...); err != nil {
		return err
	}

	if arguments.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(arguments.MetricsFile); err != nil {
				log.Warn("write metrics", zap.String("path", arguments.MetricsFile), zap.Error(err))
			}
		}()
	}

	res, err := run(ctx, req, e)
	if err != nil {
		log.Error("build failed", zap.Error(err))
		return err
	}
	out := newBuildOutput(res)

	if arguments.Broadcast {
		n, err := e.node()
		if err != nil {
			return err
		}
		txid, err := n.BroadcastTx(ctx, out.RawTx)
		if err != nil {
			return err
		}
		if txid != res.TxID {
			log.Warn("node returned a different txid", zap.String("txid", res.TxID), zap.String("node_txid", txid))
		}
		out.Broadcast = true
		if status, err := n.GetTxStatus(ctx, txid); err != nil {
			log.Warn("broadcast but not yet visible", zap.String("txid", txid), zap.Error(err))
		} else {
			log.Info("broadcast", zap.String("txid", txid), zap.Int64("confirmations", status.Confirmations))
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
