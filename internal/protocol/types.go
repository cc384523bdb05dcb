// Tickguard - Behavioral Anomaly Detection for Game Protocol Streams
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tickguard

package protocol

import "strconv"

// Direction is the flow of a packet relative to the server.
type Direction string

const (
	Inbound  Direction = "inbound"  // client to server
	Outbound Direction = "outbound" // server to client
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Inbound || d == Outbound
}

// Type identifies a packet in the vocabulary.
type Type string

// Client to server.
const (
	Position           Type = "position"
	PositionRotation   Type = "position_rotation"
	Rotation           Type = "rotation"
	Flying             Type = "flying"
	TeleportConfirm    Type = "teleport_confirm"
	Pong               Type = "pong"
	KeepAlive          Type = "keep_alive"
	BlockPlace         Type = "block_place"
	UseItem            Type = "use_item"
	ClickWindow        Type = "click_window"
	EditBook           Type = "edit_book"
	CraftRecipeRequest Type = "craft_recipe_request"
	PlayerDigging      Type = "player_digging"
	UpdateSign         Type = "update_sign"
	ChatMessage        Type = "chat_message"
	Animation          Type = "animation"
	EntityAction       Type = "entity_action"
	HeldItemChange     Type = "held_item_change"
	InteractEntity     Type = "interact_entity"
)

// Server to client.
const (
	ServerPositionCorrection Type = "server_position_correction"
	ServerPing               Type = "server_ping"
	ServerKeepAlive          Type = "server_keep_alive"
	ServerInventoryResync    Type = "server_inventory_resync"
)

var directions = map[Type]Direction{
	Position:                 Inbound,
	PositionRotation:         Inbound,
	Rotation:                 Inbound,
	Flying:                   Inbound,
	TeleportConfirm:          Inbound,
	Pong:                     Inbound,
	KeepAlive:                Inbound,
	BlockPlace:               Inbound,
	UseItem:                  Inbound,
	ClickWindow:              Inbound,
	EditBook:                 Inbound,
	CraftRecipeRequest:       Inbound,
	PlayerDigging:            Inbound,
	UpdateSign:               Inbound,
	ChatMessage:              Inbound,
	Animation:                Inbound,
	EntityAction:             Inbound,
	HeldItemChange:           Inbound,
	InteractEntity:           Inbound,
	ServerPositionCorrection: Outbound,
	ServerPing:               Outbound,
	ServerKeepAlive:          Outbound,
	ServerInventoryResync:    Outbound,
}

// Direction returns the direction the packet type travels in.
func (t Type) Direction() Direction {
	return directions[t]
}

// Valid reports whether t is part of the vocabulary.
func (t Type) Valid() bool {
	_, ok := directions[t]
	return ok
}

// IsMovement reports whether t is one of the flying family sent every tick.
func (t Type) IsMovement() bool {
	switch t {
	case Position, PositionRotation, Rotation, Flying:
		return true
	}
	return false
}

// Types returns every type travelling in d.
func Types(d Direction) []Type {
	out := make([]Type, 0, len(directions))
	for t, dir := range directions {
		if dir == d {
			out = append(out, t)
		}
	}
	return out
}

// MovementTypes lists the flying family.
var MovementTypes = []Type{Position, PositionRotation, Rotation, Flying}

// Version is a client protocol version number.
type Version int32

// Protocol numbers of notable releases.
const (
	V1_8    Version = 47
	V1_9    Version = 107
	V1_12_2 Version = 340
	V1_16_5 Version = 754
	V1_20_4 Version = 765
)

var versionNames = map[Version]string{
	V1_8:    "1.8",
	V1_9:    "1.9",
	V1_12_2: "1.12.2",
	V1_16_5: "1.16.5",
	V1_20_4: "1.20.4",
}

// Before reports whether v is older than o.
func (v Version) Before(o Version) bool { return v < o }

func (v Version) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return "protocol " + strconv.Itoa(int(v))
}
