package config

import "time"

// Embed colors
const (
	ErrorColor   = 0xFF0000
	SuccessColor = 0x00FF00
	InfoColor    = 0x0099FF
	WarningColor = 0xFFAA00

	EmbedDefaultColor = 0x2B2D31
	RankUpColor       = 0xFFD700
	RemovedColor      = 0x808080
)

// Discord limits
const (
	MaxEmbedsPerMessage = 10
	MaxFieldValueLength = 1024
	MaxChangeLines      = 15
)

// Timeouts
const (
	DefaultQueryTimeout = 30 * time.Second
	SearchTimeout       = 10 * time.Second
	DeliveryTimeout     = 2 * time.Minute
	PassTimeout         = 30 * time.Minute
	ArchiveTimeout      = 30 * time.Second
	ShutdownTimeout     = 15 * time.Second
)

// Search
const (
	MaxSearchResults = 10
)
