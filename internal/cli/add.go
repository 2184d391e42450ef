package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/sidebyside/harness/internal/archive"
)

var errProjectRequired = errors.New("--project is required")

// AddCmd returns the 'add' command.
func AddCmd(svc *services) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.StringP("project", "p", "", "Sub-project the entry belongs to (required)")
	fs.StringP("trigger", "t", archive.TriggerManual, "What initiated the entry: session|build|manual|ci")
	fs.StringArray("tag", nil, "Tag to attach (repeatable)")
	fs.StringArray("auto-tag", nil, "Harness-derived tag (repeatable)")
	fs.StringP("note", "n", "", "Free-form note text")
	fs.StringArray("screenshot", nil, "Screenshot path to record (repeatable)")
	fs.String("session-file", "", "JSON file stored verbatim as the entry's sidecar payload")
	fs.Bool("skip-commits", false, "Do not capture watched-repo commits")

	return &Command{
		Flags: fs,
		Usage: "add -p <project> [flags]",
		Short: "Record an archive entry",
		Long: `Record a new archive entry and print its ID.

The entry captures the current commit of every watched repository unless
--skip-commits is given. Session data passed via --session-file is stored
as a sidecar payload next to the index, never inline.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execAdd(ctx, o, svc, fs)
		},
	}
}

func execAdd(ctx context.Context, o *IO, svc *services, fs *flag.FlagSet) error {
	started := time.Now()

	project, _ := fs.GetString("project")
	if project == "" {
		return errProjectRequired
	}

	trigger, _ := fs.GetString("trigger")
	if !archive.IsValidTrigger(trigger) {
		return fmt.Errorf("%w: %s", archive.ErrInvalidTrigger, trigger)
	}

	timings := make(map[string]float64)

	loadStart := time.Now()

	idx, err := svc.archive.Load()
	if err != nil {
		return err
	}

	timings["load_index"] = time.Since(loadStart).Seconds()

	id, err := archive.GenerateUniqueID(time.Now(), idx.Has)
	if err != nil {
		return err
	}

	var commits map[string]string

	if skip, _ := fs.GetBool("skip-commits"); !skip {
		commitStart := time.Now()

		current, problems := svc.mapper.CurrentCommits(ctx)
		for _, repo := range slices.Sorted(maps.Keys(problems)) {
			o.Warn(fmt.Sprintf("cannot read %s commit: %v", repo, problems[repo]),
				"entry will miss that commit; fix the repo path or pass --skip-commits")
		}

		commits = current
		timings["capture_commits"] = time.Since(commitStart).Seconds()
	}

	tags, _ := fs.GetStringArray("tag")
	autoTags, _ := fs.GetStringArray("auto-tag")
	screenshots, _ := fs.GetStringArray("screenshot")
	note, _ := fs.GetString("note")

	entry := &archive.Entry{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		Project:     project,
		Trigger:     trigger,
		Tags:        tags,
		AutoTags:    autoTags,
		Notes:       note,
		Screenshots: screenshots,
		RepoCommits: commits,
	}

	var payload json.RawMessage

	if sessionFile, _ := fs.GetString("session-file"); sessionFile != "" {
		path := sessionFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(svc.cfg.EffectiveCwd, path)
		}

		payload, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read session file: %w", err)
		}
	}

	// Payload first: a rejected payload must not leave an index entry behind.
	if payload != nil {
		payloadStart := time.Now()

		if err := svc.archive.WritePayload(id, payload); err != nil {
			return err
		}

		timings["write_payload"] = time.Since(payloadStart).Seconds()
	}

	timings["total"] = time.Since(started).Seconds()
	entry.Timings = timings

	if err := idx.Add(entry); err != nil {
		return err
	}

	if err := svc.archive.Save(idx); err != nil {
		return err
	}

	o.Println(id)

	return nil
}
