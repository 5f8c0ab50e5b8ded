package orchestrator

// DefaultFallbackChain names the lowest-capability provider, used when the
// caller supplies neither a chain nor a policy.
var DefaultFallbackChain = []string{"local"}

// FallbackPolicy computes a fallback chain from the primary provider.
type FallbackPolicy func(primary string) []string

// SuggestFallbacks is the built-in policy. It returns a fresh slice.
func SuggestFallbacks(primary string) []string {
	switch primary {
	case "openai":
		return []string{"anthropic", "gemini", "local"}
	case "anthropic":
		return []string{"openai", "gemini", "local"}
	case "gemini":
		return []string{"openai", "anthropic", "local"}
	default:
		return []string{"local"}
	}
}

// candidateOrder puts primary first, then chain entries in order with the
// primary and repeats dropped.
func candidateOrder(primary string, chain []string) []string {
	out := make([]string, 0, len(chain)+1)
	seen := map[string]struct{}{primary: {}}
	out = append(out, primary)
	for _, name := range chain {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
