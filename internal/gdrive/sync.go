package gdrive

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// KnowledgeSink is where synced file text lands.
type KnowledgeSink interface {
	IngestFileAsKnowledge(name, text string, addedBy int64) error
}

// SyncFolderToKnowledge pulls every syncable file in the folder into the
// knowledge base, one entry per file. The store's (title, content)
// de-duplication makes repeated syncs of unchanged files no-ops. Returns the
// number of files ingested.
func (c *Client) SyncFolderToKnowledge(folderID string, sink KnowledgeSink, addedBy int64) (int, error) {
	files, err := c.ListFolder(folderID)
	if err != nil {
		return 0, err
	}

	ingested := 0
	for _, file := range files {
		text, syncable, err := c.FileText(file)
		if err != nil {
			return ingested, fmt.Errorf("failed to fetch %q: %w", file.Name, err)
		}
		if !syncable {
			slog.Info("skipping non-text drive file", "name", file.Name, "mime", file.MimeType)
			continue
		}
		if err := sink.IngestFileAsKnowledge(file.Name, text, addedBy); err != nil {
			return ingested, fmt.Errorf("failed to ingest %q: %w", file.Name, err)
		}
		ingested++
	}

	slog.Info("drive folder synced", "folder", folderID, "files", ingested)
	return ingested, nil
}

// RunPeriodicSync re-syncs the folder on a fixed interval until the context
// is cancelled. Failures are logged and the next tick tries again; the loop
// never takes the process down.
func (c *Client) RunPeriodicSync(ctx context.Context, folderID string, sink KnowledgeSink, addedBy int64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slog.Info("starting scheduled drive sync", "folder", folderID)
			if _, err := c.SyncFolderToKnowledge(folderID, sink, addedBy); err != nil {
				slog.Error("scheduled drive sync failed", "error", err)
			}
		}
	}
}
