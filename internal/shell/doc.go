// Package shell provides shell integration for asynchronous direnv loading.
// It serializes environment diffs into each shell's native assignment syntax
// (export for bash/zsh/sh, set -gx for fish) and generates the hook snippets
// (PROMPT_COMMAND for Bash, precmd for Zsh, fish_prompt for Fish)
// that run at every prompt, trigger a load when needed and consume its
// result file.
package shell
