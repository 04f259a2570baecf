// Package postprocess removes common LLM artifacts from translation output.
//
// It is applied to the raw message content returned by a chat backend before
// the chunk result is handed to the dispatcher.
package postprocess

import (
	"regexp"
	"strings"
)

// Preamble is the marker some models put in front of the translation.
const Preamble = "Translation:"

// Clean removes LLM artifacts from text in three phases and returns the
// trimmed result:
//  1. Thinking / reasoning block removal
//  2. "Translation:" preamble removal
//  3. Instruction echo removal (prompt leakage)
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = StripPreamble(text)
	text = removeInstructionEchoes(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <think>…</think> style blocks, which
// reasoning models emit before the answer. RE2 has no backreferences, so
// every tag pair is spelled out.
// Flags: i = case-insensitive, s = dot matches newline.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

// openThinkingRe matches a thinking tag left open when the model was cut off.
var openThinkingRe = regexp.MustCompile(`(?is)(?:<thinking>|<think>|<reasoning>).*$`)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = openThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: preamble ---

// StripPreamble drops everything up to and including the first literal
// "Translation:" marker. Text without the marker is returned unchanged.
func StripPreamble(text string) string {
	if _, after, found := strings.Cut(text, Preamble); found {
		return strings.TrimSpace(after)
	}
	return text
}

// --- Phase 3: instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed not to. Each pattern is anchored to the start of the string
// and requires a colon to reduce false positives on legitimate content.
var echoPatterns = []*regexp.Regexp{
	// "Here is / Here's [the] [translated] translation|text:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:translated )?(?:translation|text)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] translation:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:translated )?(?:translation|text)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}
