// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package syncer

//go:generate ${TOOLS_BIN}/stringer -type=Mode -trimprefix Mode
type Mode int

const (
	// ModeManual never runs unattended; a pull happens only on an explicit
	// trigger and the anchor is never persisted.
	ModeManual Mode = iota
	// ModeStream keeps a continuous reconciliation loop open against the store.
	ModeStream
	// ModePush subscribes to push notifications and performs one pull per
	// notification.
	ModePush
)

//go:generate ${TOOLS_BIN}/stringer -type=StartBehavior -trimprefix Start
type StartBehavior int

const (
	// StartAutomatic launches the source unattended at process startup.
	StartAutomatic StartBehavior = iota
	// StartManual waits for an explicit trigger or an authorization grant.
	StartManual
)

// Policy declares how a source receives updates and whether its anchor
// survives restarts.
type Policy struct {
	Mode  Mode
	Start StartBehavior
	// SaveAnchor persists the anchor on every advancement. Ignored (forced
	// off) for ModeManual.
	SaveAnchor bool
}
