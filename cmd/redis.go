package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"Vedit/cache"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the Redis job store connection",
	Long:  `Connect to the configured Redis server and run a set/get/delete roundtrip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Redis: %s, DB: %d\n", cfg.RedisAddr(), cfg.RedisDB)

		client, err := cache.Connect(cmd.Context(), cache.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		fmt.Fprintln(out, "connected")

		if err := cache.Check(cmd.Context(), client); err != nil {
			return err
		}
		fmt.Fprintln(out, "read/write roundtrip ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
