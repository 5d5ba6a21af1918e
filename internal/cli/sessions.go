// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/nexus-chat/nexus-tui/internal/export"
	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/search"
	"github.com/nexus-chat/nexus-tui/internal/util"
)

// searchDBName is the search index file inside the state directory.
const searchDBName = "search.db"

// =============================================================================
// SESSIONS COMMAND
// =============================================================================

// HandleSessions dispatches the sessions subcommands.
func HandleSessions(env *Env, args Args) int {
	switch args.Subcommand {
	case "list", "":
		return sessionsList(env, args)
	case "search":
		return sessionsSearch(env, args)
	case "export":
		return sessionsExport(env, args)
	case "delete", "rm":
		return sessionsDelete(env, args)
	default:
		printError("unknown sessions subcommand " + args.Subcommand)
		return 1
	}
}

// sessionsList prints saved chats grouped by recency.
func sessionsList(env *Env, args Args) int {
	chats := env.Chats.Chats()

	if args.JSON {
		type entry struct {
			ID        string    `json:"id"`
			Title     string    `json:"title"`
			Messages  int       `json:"messages"`
			UpdatedAt time.Time `json:"updated_at"`
		}
		entries := make([]entry, 0, len(chats))
		for _, c := range chats {
			entries = append(entries, entry{c.ID, c.Title, c.MessageCount(), c.UpdatedAt})
		}
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			printError(err.Error())
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	if len(chats) == 0 {
		fmt.Println(infoStyle.Render("No saved chats."))
		return 0
	}

	groups := model.GroupByDate(chats, time.Now())
	for _, group := range model.DateGroupOrder {
		bucket := groups[group]
		if len(bucket) == 0 {
			continue
		}
		fmt.Println(headerStyle.Render(string(group)))
		for _, chat := range bucket {
			fmt.Printf("  %s  %-44s %3d messages\n",
				shortID(chat.ID),
				util.TruncateRunes(chat.Title, 44),
				chat.MessageCount(),
			)
		}
		fmt.Println()
	}
	return 0
}

// sessionsSearch rebuilds the index from the store and runs a query.
func sessionsSearch(env *Env, args Args) int {
	if len(args.Raw) == 0 {
		printError("search needs a query")
		return 1
	}
	query := strings.Join(args.Raw, " ")

	ix, err := search.Open(filepath.Join(env.StateDir, searchDBName))
	if err != nil {
		printError(err.Error())
		return 1
	}
	defer ix.Close()

	// The chat store is the source of truth; the index is derived from it
	// on every search so deletions and edits are always reflected.
	if err := ix.Sync(env.Chats.Chats()); err != nil {
		printError(err.Error())
		return 1
	}

	results, err := ix.Search(query, 20)
	if err != nil {
		printError(err.Error())
		return 1
	}

	if args.JSON {
		out, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			printError(err.Error())
			return 1
		}
		fmt.Println(string(out))
		return 0
	}

	if len(results) == 0 {
		fmt.Println(infoStyle.Render("No matches."))
		return 0
	}
	for _, res := range results {
		fmt.Printf("%s  %s\n", shortID(res.ChatID), headerStyle.Render(res.ChatTitle))
		fmt.Printf("      [%s] %s\n", res.Role, res.Snippet)
	}
	return 0
}

// sessionsExport writes one chat to a file in the requested format.
func sessionsExport(env *Env, args Args) int {
	if len(args.Raw) == 0 {
		printError("export needs a chat id")
		return 1
	}

	chat := findChat(env, args.Raw[0])
	if chat == nil {
		printError("no chat matching " + args.Raw[0])
		return 1
	}

	exporter, err := export.ForFormat(args.Format, nil)
	if err != nil {
		printError(err.Error())
		return 1
	}

	path, err := export.ExportToFile(chat, exporter, nil)
	if err != nil {
		printError(err.Error())
		return 1
	}
	fmt.Println(infoStyle.Render("Exported to ") + path)
	return 0
}

// sessionsDelete removes one chat.
func sessionsDelete(env *Env, args Args) int {
	if len(args.Raw) == 0 {
		printError("delete needs a chat id")
		return 1
	}

	chat := findChat(env, args.Raw[0])
	if chat == nil {
		printError("no chat matching " + args.Raw[0])
		return 1
	}

	if err := env.Chats.DeleteChat(chat.ID); err != nil {
		printError(err.Error())
		return 1
	}
	fmt.Println(infoStyle.Render("Deleted " + chat.Title))
	return 0
}

// =============================================================================
// HELPERS
// =============================================================================

// findChat resolves a full or shortened chat ID.
func findChat(env *Env, id string) *model.Chat {
	if chat := env.Chats.Chat(id); chat != nil {
		return chat
	}
	for _, chat := range env.Chats.Chats() {
		if shortID(chat.ID) == id || strings.HasPrefix(strings.TrimPrefix(chat.ID, "chat_"), id) {
			return chat
		}
	}
	return nil
}

// shortID returns the first eight characters of a chat ID, prefix dropped.
func shortID(id string) string {
	id = strings.TrimPrefix(id, "chat_")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}
