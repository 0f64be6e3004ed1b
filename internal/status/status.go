// Package status classifies resolved entity contexts and maps them to
// suggested next actions.
package status

import (
	"strings"

	"github.com/docshelf-dev/docshelf/internal/models"
)

// Status is the classification of a resolved entity context.
type Status int

// The closed set of statuses, in classification priority order.
// StatusError is never produced by Classify; it is reserved for callers to
// report when resolution itself failed.
const (
	NotFound Status = iota
	NeedsMigration
	Unconfigured
	Empty
	Configured
	StatusError
)

// String returns the canonical lowercase name of the status.
func (s Status) String() string {
	switch s {
	case NotFound:
		return "not_found"
	case NeedsMigration:
		return "needs_migration"
	case Unconfigured:
		return "unconfigured"
	case Empty:
		return "empty"
	case Configured:
		return "configured"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Classify maps a context to its status. Rules are evaluated in strict
// priority order; the first match wins.
func Classify(ctx *models.CommandContext) Status {
	switch {
	case !ctx.EntityExists:
		return NotFound
	case ctx.Config.NeedsMigration:
		return NeedsMigration
	case !ctx.Config.IsConfigured:
		return Unconfigured
	case ctx.IsEmpty != nil && *ctx.IsEmpty:
		return Empty
	default:
		return Configured
	}
}

// ---------------------------------------------------------------------------
// Suggested actions
// ---------------------------------------------------------------------------

// Action describes one recommended next step for the user.
type Action struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Command string `json:"command"`
}

type actionKey struct {
	status  Status
	entity  models.EntityType
	boxType models.BoxType
}

// actionTable is the fixed mapping from (status, entity type, box type) to
// recommended actions. Entries use {name} and {shelf} placeholders filled in
// from the context at lookup time. Box entries with an empty box type apply
// to any box type not matched more specifically.
var actionTable = map[actionKey][]Action{
	{NotFound, models.EntityShelf, ""}: {
		{ID: "create", Label: "Create the shelf", Command: "shelf create {name}"},
	},
	{NotFound, models.EntityBox, ""}: {
		{ID: "create", Label: "Add the box to a shelf", Command: "shelf box add {shelf} {name}"},
	},
	{NeedsMigration, models.EntityShelf, ""}: {
		{ID: "migrate", Label: "Migrate the shelf to the current schema", Command: "shelf migrate {name}"},
	},
	{NeedsMigration, models.EntityBox, ""}: {
		{ID: "migrate", Label: "Migrate the box to the current schema", Command: "shelf box migrate {shelf} {name}"},
	},
	{Unconfigured, models.EntityShelf, ""}: {
		{ID: "setup", Label: "Run shelf setup", Command: "shelf setup {name}"},
	},
	{Unconfigured, models.EntityBox, ""}: {
		{ID: "setup", Label: "Run box setup", Command: "shelf box setup {shelf} {name}"},
	},
	{Empty, models.EntityShelf, ""}: {
		{ID: "add-box", Label: "Add a box to the shelf", Command: "shelf box add {name} <box>"},
	},
	{Empty, models.EntityBox, models.BoxDrag}: {
		{ID: "crawl", Label: "Crawl a website into the box", Command: "shelf crawl {shelf} {name} <url>"},
	},
	{Empty, models.EntityBox, models.BoxRag}: {
		{ID: "upload", Label: "Upload documents into the box", Command: "shelf upload {shelf} {name} <path>"},
	},
	{Empty, models.EntityBox, models.BoxBag}: {
		{ID: "store", Label: "Store files in the box", Command: "shelf store {shelf} {name} <path>"},
	},
	{Configured, models.EntityShelf, ""}: {
		{ID: "inspect", Label: "Inspect the shelf's boxes", Command: "shelf status {name}"},
	},
	{Configured, models.EntityBox, ""}: {
		{ID: "query", Label: "Query the box's content", Command: "shelf query {shelf} {name} <terms>"},
	},
}

// SuggestedActions returns the recommended next steps for a classified
// context. Box lookups try the exact box type first and fall back to the
// generic box entry. Unmatched combinations return an empty list.
func SuggestedActions(ctx *models.CommandContext, st Status, boxType models.BoxType) []Action {
	actions, ok := actionTable[actionKey{st, ctx.EntityType, boxType}]
	if !ok && boxType != "" {
		actions = actionTable[actionKey{st, ctx.EntityType, ""}]
	}
	if len(actions) == 0 {
		return []Action{}
	}

	out := make([]Action, len(actions))
	for i, a := range actions {
		a.Command = strings.ReplaceAll(a.Command, "{name}", ctx.EntityName)
		a.Command = strings.ReplaceAll(a.Command, "{shelf}", shelfPlaceholder(ctx))
		out[i] = a
	}
	return out
}

func shelfPlaceholder(ctx *models.CommandContext) string {
	if ctx.EntityType == models.EntityShelf {
		return ctx.EntityName
	}
	return "<shelf>"
}
