package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/nainya/howcatalog/internal/api"
	"github.com/nainya/howcatalog/internal/server"
	"github.com/nainya/howcatalog/pkg/catalog"
)

const callTimeout = 30 * time.Second

type clientOptions struct {
	*options
	target string
}

func (c *clientOptions) bind(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.target, "server", "", "gRPC address of a running server (default server.grpc_addr)")
}

// call dials the server and runs fn with a bounded context
func (c *clientOptions) call(cmd *cobra.Command, fn func(ctx context.Context, client *server.Client) (any, error)) error {
	target := c.target
	if target == "" {
		target = c.cfg.Server.GRPCAddr
	}
	if strings.HasPrefix(target, ":") {
		target = "localhost" + target
	}

	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", target, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
	defer cancel()

	out, err := fn(ctx, server.NewClient(conn))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func newUnitsCommand(o *options) *cobra.Command {
	c := &clientOptions{options: o}
	cmd := &cobra.Command{
		Use:   "units",
		Short: "List, create and manage units on a running server",
	}
	c.bind(cmd)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every indexed unit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.call(cmd, func(ctx context.Context, client *server.Client) (any, error) {
					return client.GetUnits(ctx, &api.GetUnitsRequest{})
				})
			},
		},
		&cobra.Command{
			Use:   "get HASH",
			Short: "Show one unit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.call(cmd, func(ctx context.Context, client *server.Client) (any, error) {
					return client.GetUnit(ctx, &api.GetUnitRequest{Hash: args[0]})
				})
			},
		},
		newUnitCreateCommand(c),
		&cobra.Command{
			Use:   "advance HASH STATE",
			Short: "Move a unit to a new lifecycle state",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.call(cmd, func(ctx context.Context, client *server.Client) (any, error) {
					return client.AdvanceState(ctx, &api.AdvanceStateRequest{Hash: args[0], State: args[1]})
				})
			},
		},
		&cobra.Command{
			Use:   "unlink HASH",
			Short: "Remove a unit from every index",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.call(cmd, func(ctx context.Context, client *server.Client) (any, error) {
					return client.DeleteUnitLinks(ctx, &api.DeleteUnitLinksRequest{Hash: args[0]})
				})
			},
		},
	)
	return cmd
}

func newUnitCreateCommand(c *clientOptions) *cobra.Command {
	var u api.UnitDTO
	var processes []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a unit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range processes {
				typ, name, ok := strings.Cut(p, "=")
				if !ok {
					return fmt.Errorf("process %q: want TYPE=NAME", p)
				}
				u.Processes = append(u.Processes, api.ProcessDTO{Type: typ, Name: name})
			}
			return c.call(cmd, func(ctx context.Context, client *server.Client) (any, error) {
				resp, err := client.CreateUnit(ctx, &api.CreateUnitRequest{Unit: u})
				if hash, ok := server.PartialWriteHash(err); ok {
					return nil, fmt.Errorf("%w; retry indexing with: units advance %s %s", err, hash, catalog.StartState)
				}
				return resp, err
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&u.Version, "version", "", "unit version")
	flags.StringVar(&u.ShortName, "name", "", "short display name")
	flags.StringVar(&u.PathAbbreviation, "abbrev", "", "path abbreviation, the unit's own path segment")
	flags.StringSliceVar(&u.Parents, "parent", nil, "parent path, repeatable")
	flags.StringSliceVar(&u.Stewards, "steward", nil, "steward agent key, repeatable")
	flags.StringArrayVar(&processes, "process", nil, "process as TYPE=NAME, repeatable")
	flags.StringToStringVar(&u.Meta, "meta", nil, "metadata as key=value pairs")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func newDocumentsCommand(o *options) *cobra.Command {
	c := &clientOptions{options: o}
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List and create documents on a running server",
	}
	c.bind(cmd)

	var path, file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a document at a unit path from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read document file: %w", err)
			}
			var doc api.DocumentDTO
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return fmt.Errorf("parse document file %s: %w", file, err)
			}
			return c.call(cmd, func(ctx context.Context, client *server.Client) (any, error) {
				return client.CreateDocument(ctx, &api.CreateDocumentRequest{Path: path, Document: doc})
			})
		},
	}
	create.Flags().StringVar(&path, "path", "", "unit path, for example hc_system.conductor")
	create.Flags().StringVarP(&file, "file", "f", "", "document YAML file")
	_ = create.MarkFlagRequired("path")
	_ = create.MarkFlagRequired("file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list PATH",
			Short: "List the documents attached at a unit path",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.call(cmd, func(ctx context.Context, client *server.Client) (any, error) {
					return client.GetDocuments(ctx, &api.GetDocumentsRequest{Path: args[0]})
				})
			},
		},
		create,
	)
	return cmd
}

func newTreeCommand(o *options) *cobra.Command {
	c := &clientOptions{options: o}
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the unit tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.call(cmd, func(ctx context.Context, client *server.Client) (any, error) {
				return client.GetTree(ctx, &api.GetTreeRequest{})
			})
		},
	}
	c.bind(cmd)
	return cmd
}
