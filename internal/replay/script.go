// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/model"
)

// =============================================================================
// SCRIPT FORMAT
// =============================================================================

// Script is a recorded session: the READY snapshot that seeds the cache,
// canned REST answers and a list of steps. Protocol payloads are written in
// YAML with the same field names as the JSON wire format.
type Script struct {
	// Now is the wall clock at the start of the replay.
	Now time.Time `yaml:"now"`

	Ready   any              `yaml:"ready"`
	History map[string][]any `yaml:"history"`
	Pins    map[string][]any `yaml:"pins"`

	// EchoSends makes every successful send come back as a MESSAGE_CREATE
	// carrying the nonce, as the live service does.
	EchoSends bool `yaml:"echo_sends"`
	// FailSends makes every send fail.
	FailSends bool `yaml:"fail_sends"`

	Steps []Step `yaml:"steps"`
}

// Step is one action. Exactly one field is set.
type Step struct {
	// Event names a dispatch, e.g. MESSAGE_CREATE, with Data as payload.
	Event string `yaml:"event"`
	Data  any    `yaml:"data"`

	Open  string    `yaml:"open"`
	Pins  string    `yaml:"pins"`
	Close string    `yaml:"close"`
	Send  *SendStep `yaml:"send"`

	// Advance moves the clock forward and expires typing entries.
	Advance time.Duration `yaml:"advance"`
}

// SendStep types content into a conversation.
type SendStep struct {
	Conversation string `yaml:"conversation"`
	Content      string `yaml:"content"`
}

// Load reads a script file.
func Load(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a script and checks its steps.
func Decode(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

func (st Step) validate() error {
	set := 0
	for _, ok := range []bool{st.Event != "", st.Open != "", st.Pins != "", st.Close != "", st.Send != nil, st.Advance != 0} {
		if ok {
			set++
		}
	}
	switch {
	case set == 0:
		return errors.New("empty step")
	case set > 1:
		return errors.New("more than one action in step")
	case st.Data != nil && st.Event == "":
		return errors.New("data without event")
	case st.Advance < 0:
		return errors.New("negative advance")
	}
	for _, conv := range []string{st.Open, st.Pins, st.Close} {
		if conv == "" {
			continue
		}
		if _, err := model.ParseConversationID(conv); err != nil {
			return err
		}
	}
	if st.Send != nil {
		if _, err := model.ParseConversationID(st.Send.Conversation); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// PAYLOAD CONVERSION
// =============================================================================

// reencode turns a YAML value into JSON so it decodes through the same
// paths as wire payloads.
func reencode(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Script) readyEvent() (*discord.Ready, error) {
	if s.Ready == nil {
		return nil, nil
	}
	raw, err := reencode(s.Ready)
	if err != nil {
		return nil, fmt.Errorf("ready: %w", err)
	}
	ev, err := discord.DecodeEvent("READY", raw)
	if err != nil {
		return nil, err
	}
	return ev.(*discord.Ready), nil
}

func decodeMessages(byChannel map[string][]any) (map[discord.ID][]discord.Message, error) {
	out := make(map[discord.ID][]discord.Message, len(byChannel))
	for key, list := range byChannel {
		ch, err := discord.ParseID(key)
		if err != nil {
			return nil, err
		}
		raw, err := reencode(list)
		if err != nil {
			return nil, err
		}
		var msgs []discord.Message
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return nil, fmt.Errorf("messages for %s: %w", key, err)
		}
		for i := range msgs {
			if msgs[i].ChannelID.IsZero() {
				msgs[i].ChannelID = ch
			}
		}
		out[ch] = msgs
	}
	return out, nil
}
