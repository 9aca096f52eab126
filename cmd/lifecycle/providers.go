package main

// Transport blank imports: each import activates a self-registering
// notifier ("smtp", "log").

import (
	_ "github.com/conciergehq/lifecycle/internal/adapter/email"
)
