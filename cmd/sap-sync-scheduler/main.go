package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/portal_backend/config"
	"github.com/mmdatafocus/portal_backend/sapsync"
)

// Publishes one business partner sync request per configured card type.
// Cloud Scheduler runs this as a job; the sync service does the work when
// the push subscription delivers the message.
func main() {
	types := flag.String("types", "", "Optional: comma separated card types (C,S,L). Defaults to SAP_SYNC_BP_TYPES.")
	contacts := flag.String("contacts", "", "Optional: comma separated card codes whose contacts should also be synced.")
	topic := flag.String("topic", "", "Optional: Pub/Sub topic. Defaults to SAP_SYNC_TOPIC.")
	flag.Parse()

	syncCfg := config.LoadSyncConfig()
	if strings.TrimSpace(*topic) != "" {
		syncCfg.Topic = strings.TrimSpace(*topic)
	}
	bpTypes := syncCfg.BPTypes
	if strings.TrimSpace(*types) != "" {
		bpTypes = splitAndTrim(strings.ToUpper(*types))
	}

	var messages []sapsync.SyncRequestMessage
	for _, t := range bpTypes {
		messages = append(messages, sapsync.SyncRequestMessage{Entity: sapsync.EntityBusinessPartner, Scope: t})
	}
	for _, code := range splitAndTrim(*contacts) {
		messages = append(messages, sapsync.SyncRequestMessage{Entity: sapsync.EntityContact, Scope: code})
	}
	if len(messages) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to schedule")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	defer config.ClosePubSub()

	failed := 0
	for _, msg := range messages {
		id, err := sapsync.PublishSyncRequest(ctx, syncCfg.Topic, msg)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "publish %s %s failed: %v\n", msg.Entity, msg.Scope, err)
			continue
		}
		fmt.Printf("published %s scope=%s id=%s\n", msg.Entity, msg.Scope, id)
	}
	if failed > 0 {
		_ = config.ClosePubSub()
		cancel()
		os.Exit(1)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
