// Inspect dumps the persisted messages of a running or stopped instance.
// Meant for operators: it opens the store read-only and never mutates keys.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"dmcore/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	// INSPECT_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	channel := flag.String("channel", "", "Restrict the scan to one channel id")
	flag.Parse()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Config error: ", err)
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	prefix := "msg:"
	if *channel != "" {
		prefix = fmt.Sprintf("msg:%s:", *channel)
	}

	header := fmt.Sprintf(" Messages under %q ", prefix)
	if cfg.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Println(header)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Channel", "Sent At", "ID", "Sender", "Text"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			// User records share the store, skip anything that is not a message
			if !strings.HasPrefix(string(item.Key()), "msg:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				var record repositories.DiskMessage
				if err := json.Unmarshal(v, &record); err != nil {
					// Log and continue instead of stopping the whole scan
					fmt.Printf("Error unmarshaling key %s: %v\n", string(item.Key()), err)
					return nil
				}

				// Shorten the UUID to its first 8 characters for readability
				displayID := record.ID.String()
				if len(displayID) > 8 {
					displayID = displayID[:8]
				}

				table.Append([]string{
					string(item.Key()),
					record.Channel,
					record.SentAt.Format("2006-01-02 15:04:05"),
					displayID,
					record.Sender,
					record.Text,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
