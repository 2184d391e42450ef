package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/sidebyside/harness/internal/archive"
)

const defaultLimit = 100

var errBadSince = errors.New("cannot parse --since value")

// LsCmd returns the 'ls' command.
func LsCmd(svc *services) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.StringP("project", "p", "", "Only entries for this sub-project")
	fs.StringArray("tag", nil, "Only entries carrying this tag (repeatable)")
	fs.String("since", "", "Only entries created at or after this time (RFC 3339 or YYYY-MM-DD)")
	fs.StringP("trigger", "t", "", "Only entries with this trigger")
	fs.BoolP("reverse", "r", false, "Newest first")
	fs.Int("limit", defaultLimit, "Maximum entries to print (0 = no limit)")
	fs.Int("offset", 0, "Skip the first N matching entries")

	return &Command{
		Flags: fs,
		Usage: "ls [flags]",
		Short: "List archive entries",
		Long: `List archive entries, oldest first, one line per entry:

  <id>  <created>  <project>  <trigger>  <tags>

Tag filters match either user tags or auto tags.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execLs(o, svc, fs)
		},
	}
}

func execLs(o *IO, svc *services, fs *flag.FlagSet) error {
	idx, err := svc.archive.Load()
	if err != nil {
		return err
	}

	project, _ := fs.GetString("project")
	tags, _ := fs.GetStringArray("tag")
	trigger, _ := fs.GetString("trigger")
	reverse, _ := fs.GetBool("reverse")
	limit, _ := fs.GetInt("limit")
	offset, _ := fs.GetInt("offset")

	filter := archive.Filter{
		Project: project,
		Tags:    tags,
		Trigger: trigger,
		Reverse: reverse,
		Limit:   limit,
		Offset:  offset,
	}

	if since, _ := fs.GetString("since"); since != "" {
		filter.Since, err = parseSince(since)
		if err != nil {
			return err
		}
	}

	for _, entry := range idx.List(filter) {
		o.Printf("%s  %s  %-12s %-8s %s\n",
			entry.ID,
			entry.CreatedAt.UTC().Format(time.RFC3339),
			entry.Project,
			entry.Trigger,
			strings.Join(entry.AllTags(), ","))
	}

	return nil
}

func parseSince(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s (want RFC 3339 or YYYY-MM-DD)", errBadSince, s)
	}

	return t, nil
}
