package commands

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/logiflow/logiflow/internal/apierr"
	"github.com/logiflow/logiflow/internal/authz"
	"github.com/logiflow/logiflow/internal/catalog"
	"github.com/logiflow/logiflow/internal/cli/config"
	"github.com/logiflow/logiflow/internal/cli/ui"
	"github.com/logiflow/logiflow/internal/model"
	"github.com/logiflow/logiflow/internal/store"
	"github.com/logiflow/logiflow/internal/web/graph"
	"github.com/logiflow/logiflow/internal/web/rest"
	"github.com/logiflow/logiflow/internal/web/routes"
)

var routesNoColor bool

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Show every generated route",
		Long: `Build the route table from the entity catalog and print it.

No database connection is made; the table is derived purely from the
descriptors, exactly as serve would mount it.`,
		RunE: runRoutes,
	}
	cmd.Flags().BoolVar(&routesNoColor, "no-color", false, "Disable colored output")
	return cmd
}

func runRoutes(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return apierr.NewStartup("config", err)
	}

	table, err := buildIntrospectionTable(cfg)
	if err != nil {
		return err
	}

	out := ui.NewTable(cmd.OutOrStdout(),
		[]string{"METHOD", "PATTERN", "NAME", "ENTITY", "OPERATION"},
		&ui.TableOptions{NoColor: routesNoColor})

	for _, route := range table.Routes() {
		out.AddRow(route.Method, route.Pattern, route.Name, route.Entity, route.Operation)
	}
	out.Render()
	return nil
}

// buildIntrospectionTable mounts the generated surfaces without touching
// the database. Handlers are registered but never invoked.
func buildIntrospectionTable(cfg *config.Config) (*routes.Table, error) {
	registry := model.NewRegistry()
	if err := catalog.Register(registry); err != nil {
		return nil, apierr.NewStartup("catalog", err)
	}

	resolver, err := authz.NewResolver(&authz.Config{
		PolicyPath:  cfg.Authz.PolicyFile,
		DefaultRole: cfg.Auth.DefaultRole,
	})
	if err != nil {
		return nil, apierr.NewStartup("authz", err)
	}

	stores := make(map[string]store.Store, registry.Count())
	for _, entity := range registry.All() {
		stores[entity.Name] = nil
	}

	table := routes.New()

	generator, err := rest.NewGenerator(rest.Config{
		Registry: registry,
		Stores:   stores,
		Resolver: resolver,
		Prefix:   cfg.Server.APIPrefix,
	})
	if err != nil {
		return nil, apierr.NewStartup("routes", err)
	}
	if err := generator.Mount(table); err != nil {
		return nil, apierr.NewStartup("routes", err)
	}

	surface, err := graph.New(graph.Config{
		Registry: registry,
		Stores:   stores,
		Resolver: resolver,
		Endpoint: cfg.Server.APIPrefix + "/graphql/",
		GraphiQL: cfg.Server.GraphiQL,
	})
	if err != nil {
		return nil, apierr.NewStartup("graph", err)
	}
	if err := surface.Mount(table); err != nil {
		return nil, apierr.NewStartup("routes", err)
	}

	if err := table.Handle("GET", "/healthz", func(w http.ResponseWriter, r *http.Request) {}, "healthz"); err != nil {
		return nil, apierr.NewStartup("routes", err)
	}

	return table, nil
}
