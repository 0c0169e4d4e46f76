// Package sources registers every catalog source type and opens the one a
// configuration names.
package sources

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/effectus/schemadraft/adapters"
	"github.com/effectus/schemadraft/adapters/amqp"
	_ "github.com/effectus/schemadraft/adapters/file"
	_ "github.com/effectus/schemadraft/adapters/http"
	_ "github.com/effectus/schemadraft/adapters/memory"
	_ "github.com/effectus/schemadraft/adapters/postgres"
	_ "github.com/effectus/schemadraft/adapters/redis"
	_ "github.com/effectus/schemadraft/adapters/s3"
	_ "github.com/effectus/schemadraft/adapters/sql"
)

// Watcher is implemented by sources that can report catalog changes
type Watcher interface {
	Watch(ctx context.Context, logger *zap.SugaredLogger, onChange func()) error
}

// Open creates the source described by config
func Open(config adapters.SourceConfig) (adapters.CatalogSource, error) {
	if strings.TrimSpace(config.Type) == "" {
		label := config.Name
		if label == "" {
			label = "source"
		}
		return nil, fmt.Errorf("%s has empty type", label)
	}
	source, err := adapters.CreateCatalogSource(config)
	if err != nil {
		return nil, fmt.Errorf("creating catalog source %s: %w", config.Type, err)
	}
	return source, nil
}

// Describe lists the registered source types with their config keys
func Describe() []adapters.SourceTypeInfo {
	types := adapters.GetAvailableSourceTypes()
	infos := make([]adapters.SourceTypeInfo, 0, len(types))
	for _, t := range types {
		if info, ok := adapters.GetSourceTypeInfo(t); ok {
			infos = append(infos, info)
		}
	}
	return infos
}

// OpenWatcher returns the change feed for source. An explicit notify config
// wins; otherwise the source must be watchable itself.
func OpenWatcher(source adapters.CatalogSource, notify adapters.SourceConfig) (Watcher, error) {
	switch notify.Type {
	case "":
		if w, ok := source.(Watcher); ok {
			return w, nil
		}
		return nil, fmt.Errorf("source cannot be watched; configure notify")
	case "amqp":
		return amqp.FromSourceConfig(notify)
	default:
		return nil, fmt.Errorf("unknown notify type: %s", notify.Type)
	}
}
