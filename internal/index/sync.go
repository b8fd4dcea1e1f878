package index

import (
	"log/slog"
	"time"

	"github.com/starford/navgate/internal/checksum"
	"github.com/starford/navgate/internal/policy"
	"github.com/starford/navgate/internal/storage"
)

// Sync walks the policy directory and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Files that fail to parse are logged and left out; a broken policy never
// grants anything.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if _, _, err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			dropInvalid(db, m.Path, logger)
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if _, err := db.DeletePolicy(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile parses data and upserts it into the DB. It returns the actor
// the file describes and, when the file used to describe someone else, that
// previous actor. The previous actor has lost every grant the file gave.
func IndexFile(db *DB, path string, data []byte) (actor, replaced string, err error) {
	doc, err := policy.Parse(data)
	if err != nil {
		return "", "", err
	}
	prev, err := db.ActorAt(path)
	if err != nil {
		return "", "", err
	}
	row := PolicyRow{
		Path:        path,
		Actor:       doc.Actor,
		Superuser:   doc.Superuser,
		Checksum:    checksum.Sum(data),
		Permissions: doc.Permissions,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := db.UpsertPolicy(row); err != nil {
		return "", "", err
	}
	if prev == doc.Actor {
		prev = ""
	}
	return doc.Actor, prev, nil
}

// dropInvalid removes the previous index entry of a file that no longer
// parses, so stale grants do not outlive the edit that broke them.
func dropInvalid(db *DB, path string, logger *slog.Logger) {
	actor, err := db.DeletePolicy(path)
	if err != nil {
		logger.Warn("index: drop invalid failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	if actor != "" {
		logger.Warn("index: revoked grants of invalid policy", slog.String("path", path), slog.String("actor", actor))
	}
}
