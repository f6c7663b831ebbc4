package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/liminalhq/liminal/internal/config"
	"github.com/liminalhq/liminal/internal/migrate"
	"github.com/liminalhq/liminal/internal/repository"
)

var dbConnString string

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbConnString, "db", "d", "", "Database connection string (defaults to configuration)")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(pruneInvitationsCmd)
}

var rootCmd = &cobra.Command{
	Use:   "liminalctl",
	Short: "Admin tooling for a liminal deployment",
	Long:  `liminalctl runs schema migrations and maintenance tasks against a liminal database.`,
}

// resolveDSN prefers the --db flag, falling back to the loaded configuration.
func resolveDSN() string {
	if dbConnString != "" {
		return dbConnString
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg.Database.URL
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down]",
	Short: "Apply or roll back schema migrations",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		direction := args[0]
		if err := migrate.Run(resolveDSN(), direction); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Printf("Migrations applied (%s)\n", direction)
	},
}

var pruneInvitationsCmd = &cobra.Command{
	Use:   "prune-invitations",
	Short: "Delete unaccepted invitations past their expiry",
	Run: func(cmd *cobra.Command, args []string) {
		db, err := gorm.Open(postgres.Open(resolveDSN()), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		invRepo := repository.NewInvitationRepository(db)
		pruned, err := invRepo.DeleteExpired(ctx, time.Now())
		if err != nil {
			log.Fatalf("Failed to prune invitations: %v", err)
		}
		fmt.Printf("Pruned %d expired invitations\n", pruned)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
