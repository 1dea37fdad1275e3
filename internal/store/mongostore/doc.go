// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package mongostore adapts a MongoDB deployment to the record store
// interfaces. Pulls walk an updatedAt watermark over tombstoned
// collections, streams ride change streams with resume token anchors.
package mongostore
