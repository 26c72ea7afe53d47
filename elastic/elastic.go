package elastic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/foresturquhart/indexhook/elastic/indexes"
	"github.com/rs/zerolog/log"
)

type Elastic struct {
	Client *elasticsearch.TypedClient
}

func NewElastic(url string) (*Elastic, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create elasticsearch client: %w", err)
	}

	info, err := client.Info().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to elasticsearch: %w", err)
	}

	log.Info().Msgf("Connected to Elasticsearch cluster %s", info.ClusterName)

	return &Elastic{
		Client: client,
	}, nil
}

// Migrate creates missing indexes and updates the mappings of existing ones.
// Indexes are processed in name order.
func (e *Elastic) Migrate(ctx context.Context) error {
	names := make([]string, 0, len(indexes.Indexes))
	for name := range indexes.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := e.migrateIndex(ctx, name, indexes.Indexes[name]); err != nil {
			return err
		}
	}

	return nil
}

func (e *Elastic) migrateIndex(ctx context.Context, name string, mapping *types.TypeMapping) error {
	exists, err := e.Client.Indices.Exists(name).Do(ctx)
	if err != nil {
		return fmt.Errorf("unable to check if index %s exists: %w", name, err)
	}

	if !exists {
		res, err := e.Client.Indices.Create(name).Mappings(mapping).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", name, err)
		}
		if !res.Acknowledged {
			return fmt.Errorf("failed to create index %s: not acknowledged", name)
		}
		log.Info().Str("index", name).Msg("Created search index")
		return nil
	}

	res, err := e.Client.Indices.PutMapping(name).Properties(mapping.Properties).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to update index %s: %w", name, err)
	}
	if !res.Acknowledged {
		return fmt.Errorf("failed to update index %s: not acknowledged", name)
	}
	log.Debug().Str("index", name).Msg("Updated search index mapping")

	return nil
}
