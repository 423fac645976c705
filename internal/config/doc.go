// Package config loads and persists keybridge preferences.
//
// Preferences live in a YAML file under the home directory (~/.keybridge by
// default). Missing keys fall back to Defaults. The crypto section feeds the
// delegation session: crypto.user_ids is the identity (empty means none
// configured), crypto.provider names the external provider, and
// crypto.enabled asks the delegation context to bind eagerly.
package config
