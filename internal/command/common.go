// Copyright (c) 2026 Relay Chat <oss@relay.chat>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/relaychat/relayctl/internal/api"
	"github.com/relaychat/relayctl/internal/auth"
	"github.com/relaychat/relayctl/internal/cache"
	"github.com/relaychat/relayctl/internal/config"
	"github.com/relaychat/relayctl/internal/meta"
	"github.com/relaychat/relayctl/internal/pipeline"
	"github.com/relaychat/relayctl/internal/store"
	"github.com/relaychat/relayctl/internal/transport"
)

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if m, ok := cmd.Metadata["meta"].(meta.Meta); ok {
		return m
	}
	return meta.Meta{}
}

// NewAPIClient assembles the full stack behind one api.Client: persistent
// store, two-tier cache (reloaded from disk), session-backed auth provider,
// HTTP transport, and the pipeline tying them together.
func NewAPIClient(cmd *cli.Command) (*api.Client, error) {
	rules := pipeline.DefaultRules()
	applyTTLOverrides(rules)

	backing := resolveStore()
	mgr := cache.NewManager(cache.WithStore[json.RawMessage](backing, rules.PersistKey))
	if err := mgr.LoadPersistent(); err != nil {
		log.WithError(err).Warn("failed to reload persisted cache")
	}
	// Sweep out entries past their maximum stale age before doing anything.
	mgr.Cleanup()

	httpT := transport.New(cmd.String("server"), nil)
	tokens := auth.NewProvider(httpT)
	httpT.SetTokens(tokens)

	if path, ok := auth.SessionPath(); ok {
		pair, err := auth.LoadSession(path)
		if err != nil {
			log.WithError(err).Warn("failed to load saved session")
		} else if pair.Refresh != "" {
			tokens.SetPair(pair.Access, pair.Refresh)
		}
		tokens.OnChange(func(p auth.TokenPair) {
			if err := auth.SaveSession(path, p); err != nil {
				log.WithError(err).Warn("failed to save session")
			}
		})
	}

	pipe := pipeline.New(httpT, mgr, tokens, rules, pipeline.NewRateLimitState())
	return api.NewClient(pipe, tokens), nil
}

// resolveStore picks the durable tier, falling back to an unbounded memory
// store when no cache directory can be had. The cache still works, it just
// forgets on exit.
func resolveStore() store.Store {
	if enabled, err := config.GetBool("cache.enabled", true); err == nil && !enabled {
		log.Debug("persistent cache disabled by config, memory-only")
		return store.NewMemStore(0)
	}
	base, ok := store.Dir()
	if !ok {
		log.Debug("no cache directory available, memory-only")
		return store.NewMemStore(0)
	}
	fs, err := store.NewFileStore(base)
	if err != nil {
		log.WithError(err).Warn("cache directory unusable, memory-only")
		return store.NewMemStore(0)
	}
	return fs
}

func applyTTLOverrides(rules pipeline.Rules) {
	for _, r := range rules {
		if secs, err := config.GetInt("cache.ttl." + r.Pattern); err == nil && secs > 0 {
			rules.OverrideTTL(r.Pattern, time.Duration(secs)*time.Second)
		}
	}
}

// Emit prints a payload, optionally drilled with --query, honoring --json.
func Emit(cmd *cli.Command, raw json.RawMessage) {
	if q := cmd.String("query"); q != "" {
		fmt.Println(gjson.GetBytes(raw, q).String())
		return
	}
	if cmd.Bool("json") {
		fmt.Println(string(raw))
		return
	}
	var pretty any
	if err := json.Unmarshal(raw, &pretty); err == nil {
		if out, err := json.MarshalIndent(pretty, "", "  "); err == nil {
			fmt.Println(string(out))
			return
		}
	}
	fmt.Println(string(raw))
}

// StaleNotice warns on stderr when cached data may be outdated. Quiet when
// stderr is not a terminal so piped output stays clean.
func StaleNotice(m api.Meta) {
	if !m.Stale {
		return
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintln(os.Stderr, "note: served from cache, data may be outdated")
	}
}
