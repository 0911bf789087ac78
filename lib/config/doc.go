// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the contract host's YAML configuration.
//
// Configuration comes from exactly one file, named by the
// CROSSWORD_CONFIG environment variable ([Load]) or a --config flag
// ([LoadFile]). There is no discovery and no fallback file.
//
// The file may carry development, staging, and production sections
// that override base values when [Config].Environment matches.
// Production without a section defaults to durable writes.
//
// After loading, ${HOME}, ${CROSSWORD_ROOT}, and ${VAR:-default}
// patterns are expanded in path fields. No other environment variable
// overrides a configured value.
//
// Example:
//
//	environment: production
//	paths:
//	  root: /var/lib/crossword
//	  socket: /run/crossword/crossword.sock
//	service:
//	  log_level: info
//	  metrics_address: 127.0.0.1:9464
//	  max_call_age: 2m
//	accounts:
//	  - name: alice
//	    key: ed25519:3b6a27bcceb6a42d62a3a8d02a6f0d73653215771de243a63ac048a18b59da29
//	    balance: 1000
package config
