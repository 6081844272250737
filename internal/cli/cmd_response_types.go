package cli

import "github.com/odysseus0/svgsafe/internal/rules"

type SanitizeResponse struct {
	Mode       string `json:"mode"`
	Source     string `json:"source"`
	InputBytes int    `json:"input_bytes"`
	Outcome    string `json:"outcome"`
	Reason     string `json:"reason,omitempty"`
	Signature  string `json:"signature,omitempty"`
	Output     string `json:"output,omitempty"`
	OutPath    string `json:"out_path,omitempty"`
}

type CheckResponse struct {
	Source     string   `json:"source"`
	Strict     bool     `json:"strict"`
	Outcome    string   `json:"outcome"`
	Reason     string   `json:"reason,omitempty"`
	Signatures []string `json:"signatures"`
}

type RulesResponse struct {
	Rules                  rules.Spec   `json:"rules"`
	Limits                 rules.Limits `json:"limits"`
	RemoveRemoteReferences bool         `json:"remove_remote_references"`
}

type PruneResponse struct {
	Days    int   `json:"days"`
	Removed int64 `json:"removed"`
}
