package pipeline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-git/go-git/v5"

	"github.com/romangod6/sitemapgen/internal/models"
)

// GitDates sets the modified field of every file that lacks one to the
// committer time of the last commit touching its source path. When the
// source is not inside a git repository the plugin does nothing.
func GitDates() Plugin {
	return Sync(func(files *models.Files, p *Pipeline) error {
		log := p.Logger()

		repo, err := git.PlainOpenWithOptions(p.Source(), &git.PlainOpenOptions{DetectDotGit: true})
		if errors.Is(err, git.ErrRepositoryNotExists) {
			log.Debug().Str("source", p.Source()).Msg("Source is not a git repository, skipping git dates")
			return nil
		}
		if err != nil {
			return fmt.Errorf("open git repository: %w", err)
		}

		wt, err := repo.Worktree()
		if err != nil {
			return fmt.Errorf("open worktree: %w", err)
		}
		absSource, err := filepath.Abs(p.Source())
		if err != nil {
			return err
		}
		prefix, err := filepath.Rel(wt.Filesystem.Root(), absSource)
		if err != nil {
			return err
		}

		updated := 0
		var walkErr error
		files.Range(func(key string, rec *models.FileRecord) bool {
			if _, ok := rec.Metadata["modified"]; ok {
				return true
			}
			src, _ := rec.Metadata[SourcePathKey].(string)
			if src == "" {
				return true
			}
			rel := filepath.ToSlash(filepath.Join(prefix, src))

			when, found, err := lastCommitTime(repo, rel)
			if err != nil {
				walkErr = fmt.Errorf("git log %s: %w", rel, err)
				return false
			}
			if found {
				rec.Set("modified", when)
				updated++
			}
			return true
		})
		if walkErr != nil {
			return walkErr
		}

		log.Debug().Int("files", updated).Msg("Git dates applied")
		return nil
	})
}

func lastCommitTime(repo *git.Repository, file string) (t any, found bool, err error) {
	iter, err := repo.Log(&git.LogOptions{FileName: &file})
	if err != nil {
		return nil, false, err
	}
	defer iter.Close()

	c, err := iter.Next()
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return c.Committer.When.UTC(), true, nil
}
