// Binario de jobs batch: las mismas operaciones se pueden invocar por
// CLI (cron) o dejar el proceso escuchando la cola AMQP.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	pg "archive-access/internal/adapters/storage/postgres"
	"archive-access/internal/event"
	"archive-access/internal/jobs/propagate"
	"archive-access/internal/jobs/sweep"
	"archive-access/internal/platform/logger"

	"github.com/spf13/cobra"
)

var (
	flagBackfill    bool
	flagSync        string
	flagResourceIDs []string
	flagToItems     bool
	flagToMedia     bool
	flagActor       string
	flagViewAll     bool

	flagQueue string
)

func main() {
	cobra.CheckErr(rootCmd.Execute())
}

var rootCmd = &cobra.Command{
	Use:           "accessjobs",
	Short:         "Jobs batch del índice de acceso",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Jobs batch del índice de acceso (accessjobs).

Requiere DB_DSN apuntando al Postgres del servicio. Subcomandos:

  propagate   backfill, sincronización con el espejo de propiedades y
              cascada de nivel/embargo por la jerarquía
  sweep       levantar embargos vencidos según la política configurada
  listen      quedarse consumiendo invocaciones de jobs desde AMQP`,
}

var propagateCmd = &cobra.Command{
	Use:   "propagate",
	Short: "Backfill, sync con el espejo y cascada de status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		job := newPropagateJob(db, logger.NewFromEnv())
		return job.Run(cmd.Context(), propagate.Args{
			Backfill:     flagBackfill,
			Sync:         propagate.SyncMode(flagSync),
			ResourceIDs:  flagResourceIDs,
			ToItems:      flagToItems,
			ToMedia:      flagToMedia,
			ActorUserID:  flagActor,
			ActorViewAll: flagViewAll,
		})
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Levantar embargos vencidos según la política configurada",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		job := newSweepJob(db, logger.NewFromEnv())
		return job.Run(cmd.Context())
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Consumir invocaciones de jobs desde AMQP (AMQP_URI)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		log := logger.NewFromEnv()

		consumer, err := event.NewJobConsumer(
			os.Getenv("AMQP_URI"),
			flagQueue,
			newPropagateJob(db, log),
			newSweepJob(db, log),
			log,
		)
		if err != nil {
			return err
		}
		if err := consumer.Start(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		log.Info("shutting down", nil)
		return consumer.Close()
	},
}

func openDB() (*sql.DB, error) {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}
	return pg.Open(dsn)
}

func newPropagateJob(db *sql.DB, log logger.Logger) *propagate.Job {
	accessRepo := pg.NewAccessRepo(db)
	return propagate.New(
		accessRepo,
		accessRepo,
		pg.NewResourcesRepo(db),
		pg.NewSettingsStore(db),
		log,
	)
}

func newSweepJob(db *sql.DB, log logger.Logger) *sweep.Job {
	accessRepo := pg.NewAccessRepo(db)
	return sweep.New(
		accessRepo,
		accessRepo,
		pg.NewSettingsStore(db),
		log,
	)
}

func init() {
	propagateCmd.Flags().BoolVar(&flagBackfill, "backfill", false, "insertar filas faltantes derivadas de la visibilidad")
	propagateCmd.Flags().StringVar(&flagSync, "sync", "", "dirección de sync: index_to_properties o properties_to_index")
	propagateCmd.Flags().StringSliceVar(&flagResourceIDs, "resource", nil, "contenedor cuyo status se cascadea (repetible)")
	propagateCmd.Flags().BoolVar(&flagToItems, "to-items", false, "la cascada alcanza los items")
	propagateCmd.Flags().BoolVar(&flagToMedia, "to-media", false, "la cascada alcanza los media")
	propagateCmd.Flags().StringVar(&flagActor, "actor", "", "user id del principal que ejecuta la cascada")
	propagateCmd.Flags().BoolVar(&flagViewAll, "view-all", false, "el principal tiene blanket rights")

	listenCmd.Flags().StringVar(&flagQueue, "queue", "", "nombre de la cola de jobs (default access-jobs)")

	rootCmd.AddCommand(propagateCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(listenCmd)
}
