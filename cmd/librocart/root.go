package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"librocart/internal/cart"
	"librocart/internal/catalog"
	"librocart/internal/clients"
	"librocart/internal/config"
	"librocart/internal/storage"
	"librocart/internal/storefront"
)

const version = "0.1.0"

type app struct {
	envFile string
	cfg     *config.Config
	log     *logrus.Logger
	out     io.Writer
	in      io.Reader
}

func newRootCmd(out io.Writer, in io.Reader) *cobra.Command {
	a := &app{out: out, in: in, log: logrus.New()}

	root := &cobra.Command{
		Use:           "librocart",
		Short:         "Bookstore catalog and shopping cart",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log.SetOutput(os.Stderr)
			a.log.SetLevel(cfg.Level())
			a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(os.Stderr)
	root.SetIn(in)
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "optional dotenv file")

	root.AddCommand(
		newServeCmd(a),
		newListCmd(a),
		newGenresCmd(a),
		newCartCmd(a),
	)
	return root
}

func (a *app) source() catalog.Source {
	if a.cfg.RemoteCatalog() {
		return clients.NewCatalogClient(a.cfg.CatalogSource)
	}
	return catalog.FileSource(a.cfg.CatalogSource)
}

// openSession connects the configured backend and loads a session. The
// returned close func releases the backend.
func (a *app) openSession(ctx context.Context, notifier cart.Notifier) (*storefront.Session, func(), error) {
	kv, err := storage.Open(ctx, storage.Options{
		Backend:     a.cfg.StorageBackend,
		Path:        a.cfg.StoragePath,
		RedisAddr:   a.cfg.RedisAddr,
		DatabaseURL: a.cfg.DatabaseURL,
		FaultRate:   a.cfg.StorageFaultRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}

	session, err := storefront.Open(ctx, storefront.Options{
		Source:    a.source(),
		KV:        kv,
		Namespace: a.cfg.Namespace,
		Locale:    a.cfg.Language(),
		Pricing:   a.cfg.Pricing(),
		Notifier:  notifier,
		Log:       a.log,
	})
	if err != nil {
		kv.Close()
		return nil, nil, err
	}

	return session, func() {
		if err := kv.Close(); err != nil {
			a.log.WithError(err).Warn("close storage")
		}
	}, nil
}
