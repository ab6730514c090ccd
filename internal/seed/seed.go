package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/docstore"
)

const FileFlag = "seed-file"

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("seed", pflag.ExitOnError)
	fs.AddFlagSet(docstore.Flags())
	fs.String(FileFlag, "", "json document to store; a small sample document is used when empty")
	return fs
}

// Runner writes the document served by /api/readDB.
func Runner(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	doc, err := loadDocument(viper.GetString(FileFlag), docstore.DocumentID(), time.Now())
	if err != nil {
		return err
	}
	store, err := docstore.NewFromFlags(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			ctxLogger.Warn(ctx, "failed closing docstore", zap.Error(err))
		}
	}()
	return Seed(ctx, store, docstore.DocumentID(), doc)
}

func Seed(ctx context.Context, store docstore.Store, id string, doc json.RawMessage) error {
	if err := store.Put(ctx, id, doc); err != nil {
		return err
	}
	ctxLogger.Info(ctx, "seeded document", zap.String("id", id), zap.Int("bytes", len(doc)))
	return nil
}

func loadDocument(file, id string, now time.Time) (json.RawMessage, error) {
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed reading %s: %w", file, err)
		}
		return json.RawMessage(b), nil
	}
	return json.Marshal(map[string]interface{}{
		"_id":       id,
		"name":      "benchmark",
		"createdAt": now.UTC().Format(time.RFC3339),
		"items":     []int{1, 2, 3, 4, 5},
	})
}
