// Command sprintscale runs the scheduling engine against an offline YAML
// backlog snapshot and prints a full sprint report as JSON. It exists for
// demos and local inspection; real integrations embed the engine directly.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/quillforge/sprintscale"
	"github.com/quillforge/sprintscale/internal/eventbus"
	"github.com/quillforge/sprintscale/internal/tracker"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <snapshot.yaml> [issue-key]\n", os.Args[0])
		os.Exit(2)
	}
	if err := run(os.Args[1], optionalArg(2)); err != nil {
		log.Fatalf("sprintscale: %v", err)
	}
}

func optionalArg(i int) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return ""
}

func run(snapshotPath, issueKey string) error {
	snap, err := tracker.LoadSnapshot(snapshotPath)
	if err != nil {
		return err
	}
	if err := snap.Validate(); err != nil {
		return err
	}

	bus := eventbus.NewChannelEventBus()
	if _, err := bus.SubscribeAll(func(ctx context.Context, event eventbus.Event) error {
		log.Printf("event: %s (source: %s)", event.Type(), event.Source())
		return nil
	}); err != nil {
		return err
	}

	engine, err := sprintscale.New(
		sprintscale.WithSource(tracker.NewSnapshotSource(snap)),
		sprintscale.WithEventBus(bus),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()

	report, err := engine.Report(ctx, snap.ProjectKey, sprintscale.CalendarParams{})
	if err != nil {
		return err
	}
	if err := printJSON(report); err != nil {
		return err
	}

	if issueKey != "" {
		result, err := engine.EtaRange(ctx, snap.ProjectKey, issueKey, nil)
		if err != nil {
			return err
		}
		log.Printf("%s", result.Summary)
		if err := printJSON(result); err != nil {
			return err
		}
	}
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
