// Command reembed 重新计算所有帖子的向量，用于更换 Embedding 模型或补齐历史数据。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"social-feed-go/internal/config"
	"social-feed-go/internal/pipeline"
	"social-feed-go/internal/repository"
	"social-feed-go/pkg/database"
	"social-feed-go/pkg/embedding"
	"social-feed-go/pkg/log"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var (
	configPath string
	batchSize  int
	force      bool
)

var rootCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Re-embed posts whose cached vectors are stale",
	Long: `Walks every post in id order and recomputes its embedding when the cached
vector is missing, was produced by a different model, or predates the last edit.
Use --force to recompute every post regardless.`,
	SilenceUsage: true,
	RunE:         runReembed,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "./configs/config.yaml", "path to config file")
	rootCmd.Flags().IntVarP(&batchSize, "batch", "b", 100, "posts per database batch")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "recompute all embeddings")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runReembed(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Init(cfg.Log.Level, cfg.Log.Format, "")
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database.InitMySQL(cfg.Database.MySQL.DSN, cfg.Database.MySQL.AutoMigrate)
	postRepo := repository.NewPostRepository(database.DB)
	processor := pipeline.NewProcessor(postRepo, embedding.NewClient(cfg.Embedding))

	total, err := postRepo.Count(ctx)
	if err != nil {
		return fmt.Errorf("统计帖子数量失败: %w", err)
	}
	if total == 0 {
		fmt.Println("No posts to re-embed.")
		return nil
	}

	bar := progressbar.NewOptions64(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	stats, err := processor.Backfill(ctx, postRepo, batchSize, force, func(scanned int) {
		_ = bar.Set(scanned)
	})
	_ = bar.Finish()
	if err != nil && err != context.Canceled {
		return err
	}

	fmt.Printf("Scanned %d posts, re-embedded %d, failed %d (model %s)\n",
		stats.Scanned, stats.Embedded, stats.Failed, cfg.Embedding.Model)
	if err == context.Canceled {
		return fmt.Errorf("interrupted")
	}
	return nil
}
