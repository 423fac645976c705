package app

import "keybridge/internal/domain"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string // config directory, e.g. $HOME/.keybridge
	Identity string // overrides crypto.user_ids when set
	Provider string // overrides crypto.provider when set

	// Interactor receives follow-ups that need the user. Optional.
	Interactor domain.Interactor
}
