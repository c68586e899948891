// Package search maintains a full-text index over committed messages.
// The badger log stays the source of truth; the index is a lookup
// accelerator and is allowed to lag or miss entries after a crash.
package search

import (
	"context"
	"log/slog"

	"dmcore/domain"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Hit is one search result, resolved from stored fields only. Callers who
// need the full record go back to the message repository with the id.
type Hit struct {
	ID      string
	Channel string
	Sender  string
	Text    string
}

func OpenIndex(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

// Add indexes one committed message. The message language is detected at
// index time so queries can filter by it later.
func (i *Index) Add(channel domain.ChannelID, msg domain.Message) error {
	info := whatlanggo.Detect(msg.Text)

	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewKeywordField("channel", string(channel)).StoreValue()).
		AddField(bluge.NewKeywordField("sender", string(msg.Sender)).StoreValue()).
		AddField(bluge.NewTextField("text", msg.Text).StoreValue()).
		AddField(bluge.NewKeywordField("lang", info.Lang.Iso6391())).
		AddField(bluge.NewDateTimeField("sent_at", msg.SentAt).Sortable())

	return i.writer.Update(doc.ID(), doc)
}

// Search returns matching messages, newest first.
func (i *Index) Search(ctx context.Context, q Query) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(q.Terms).SetField("text"))
	if q.Channel != "" {
		query.AddMust(bluge.NewTermQuery(string(q.Channel)).SetField("channel"))
	}
	if q.Lang != "" {
		query.AddMust(bluge.NewTermQuery(q.Lang).SetField("lang"))
	}

	request := bluge.NewTopNSearch(q.Limit, query).SortBy([]string{"-sent_at"})
	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	match, err := iterator.Next()
	for err == nil && match != nil {
		var hit Hit
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.ID = string(value)
			case "channel":
				hit.Channel = string(value)
			case "sender":
				hit.Sender = string(value)
			case "text":
				hit.Text = string(value)
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		hits = append(hits, hit)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}
