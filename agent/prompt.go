package agent

import (
	"fmt"
	"strings"

	"github.com/reelforge/reelforge-api/clients"
)

const (
	maxPromptFrames        = 50
	maxPromptSpeechLines   = 100
	maxSceneDescriptionLen = 200
	maxOutputSeconds       = 40.0
)

// SystemPrompt is the agent's role definition, shared by all jobs.
const SystemPrompt = `You are an expert short-form video editor specializing in vertical content for YouTube Shorts, Instagram Reels, and TikTok.

Your job: given a description of a video (frame captions, scene analysis, and speech transcript), produce an edit decision list (EDL) that cuts the video down to a compelling short.

Editing principles:
- The hook is everything: the first 2 seconds must grab attention or viewers scroll away.
- The final edit MUST be 40 seconds or less. This is a hard platform limit.
- Prefer tight, energetic pacing; cut dead air and filler aggressively.
- Build a story arc: hook, build-up, climax, resolution.
- Only reference content that actually appears in the provided descriptions. Never invent moments that are not described.

You must respond with valid JSON matching the provided schema, and nothing else.`

// PromptBuilder assembles the per-job user prompt from compressed video data
// and the story intent.
type PromptBuilder struct{}

// Build renders the user prompt. Multiple videos get per-video context blocks
// and an instruction to tag every EDL segment with its video_id.
func (PromptBuilder) Build(videos []VideoData, intent StoryIntent) string {
	var b strings.Builder
	multi := len(videos) > 1

	var totalDuration float64
	for _, v := range videos {
		totalDuration += v.Duration
	}
	target := TargetDuration(totalDuration, intent.LengthPercentage())
	if target > maxOutputSeconds {
		target = maxOutputSeconds
	}

	if multi {
		fmt.Fprintf(&b, "You are editing %d source videos into one short.\n", len(videos))
		fmt.Fprintf(&b, "Total source duration: %.2f seconds.\n\n", totalDuration)
	}

	for _, v := range videos {
		writeVideoContext(&b, v, multi)
	}

	b.WriteString("STORY REQUIREMENTS:\n")
	writeIntent(&b, intent)
	b.WriteString("\n")

	b.WriteString("TASK:\n")
	fmt.Fprintf(&b, "Create an EDL that edits the source down to approximately %.1f seconds.\n", target)
	b.WriteString(`1. Pick a hook: open with the single most attention-grabbing moment.
2. Build a story arc across the kept segments: hook, build, climax, resolution.
3. Use "keep" segments of 1 to 5 seconds each for tight pacing; longer only when a moment truly needs it.
4. Mark everything else as "skip". Use "transition" entries only at meaningful story beats.
`)
	if multi {
		b.WriteString("5. Every EDL segment MUST include the video_id of its source video.\n")
	}
	b.WriteString("\n")

	b.WriteString("VERIFICATION (do this before answering):\n")
	fmt.Fprintf(&b, "- Sum the durations of your keep segments. The total must be within 5%% of %.1f seconds and must never exceed %.0f seconds. If it is off, adjust your segments and re-check.\n", target, maxOutputSeconds)
	b.WriteString("- Every timestamp must lie inside its source video's duration.\n")
	b.WriteString("- Keep segments must not overlap.\n\n")

	b.WriteString("CRITICAL CONSTRAINTS:\n")
	fmt.Fprintf(&b, "- Hard limit: total kept duration <= %.0f seconds.\n", maxOutputSeconds)
	b.WriteString("- Respond with JSON only, matching the schema. No prose, no markdown fences.\n")
	b.WriteString("- Only use moments present in the descriptions above.\n")

	return b.String()
}

func writeVideoContext(b *strings.Builder, v VideoData, multi bool) {
	if multi {
		fmt.Fprintf(b, "=== VIDEO %q ===\n", v.VideoID)
	}
	b.WriteString("VIDEO CONTEXT:\n")
	fmt.Fprintf(b, "Duration: %.2f seconds\n\n", v.Duration)

	if v.Summary != "" {
		b.WriteString("SUMMARY:\n")
		b.WriteString(v.Summary)
		b.WriteString("\n\n")
	}

	if len(v.Frames) > 0 {
		b.WriteString("VISUAL CONTENT (sampled frame captions):\n")
		shown := v.Frames
		if len(shown) > maxPromptFrames {
			shown = shown[:maxPromptFrames]
		}
		for _, f := range shown {
			fmt.Fprintf(b, "- %.2fs: %s\n", f.Timestamp, f.Caption)
		}
		if extra := len(v.Frames) - len(shown); extra > 0 {
			fmt.Fprintf(b, "... and %d more frames\n", extra)
		}
		b.WriteString("\n")
	}

	if len(v.Scenes) > 0 {
		b.WriteString("SCENE ANALYSIS:\n")
		for _, s := range v.Scenes {
			desc := s.Caption
			if len(desc) > maxSceneDescriptionLen {
				desc = desc[:maxSceneDescriptionLen]
			}
			fmt.Fprintf(b, "- %.2fs - %.2fs (%.2fs): %s\n", s.Start, s.End, s.End-s.Start, desc)
		}
		b.WriteString("\n")
	}

	if len(v.Transcript) > 0 {
		b.WriteString("SPEECH CONTENT:\n")
		shown := v.Transcript
		if len(shown) > maxPromptSpeechLines {
			shown = shown[:maxPromptSpeechLines]
		}
		for _, seg := range shown {
			fmt.Fprintf(b, "- %.2fs - %.2fs: %q\n", seg.Start, seg.End, seg.Text)
		}
		b.WriteString("\n")
	}
}

func writeIntent(b *strings.Builder, intent StoryIntent) {
	if intent.TargetAudience != "" {
		fmt.Fprintf(b, "Target audience: %s\n", intent.TargetAudience)
	}
	if intent.Tone != "" {
		fmt.Fprintf(b, "Tone: %s\n", intent.Tone)
	}
	if intent.KeyMessage != "" {
		fmt.Fprintf(b, "Key message: %s\n", intent.KeyMessage)
	}
	fmt.Fprintf(b, "Desired length: %.0f%% of the source\n", intent.LengthPercentage())
	if arc := intent.StoryArc; arc != nil {
		if arc.Hook != "" {
			fmt.Fprintf(b, "Hook: %s\n", arc.Hook)
		}
		if arc.Build != "" {
			fmt.Fprintf(b, "Build: %s\n", arc.Build)
		}
		if arc.Climax != "" {
			fmt.Fprintf(b, "Climax: %s\n", arc.Climax)
		}
		if arc.Resolution != "" {
			fmt.Fprintf(b, "Resolution: %s\n", arc.Resolution)
		}
	}
	if sp := intent.StylePreferences; sp != nil {
		if sp.Pacing != "" {
			fmt.Fprintf(b, "Pacing: %s\n", sp.Pacing)
		}
		if sp.Transitions != "" {
			fmt.Fprintf(b, "Transitions: %s\n", sp.Transitions)
		}
		if sp.Emphasis != "" {
			fmt.Fprintf(b, "Emphasis: %s\n", sp.Emphasis)
		}
	}
}

// Messages returns the full chat payload for one edit-plan generation.
func (pb PromptBuilder) Messages(videos []VideoData, intent StoryIntent) []clients.ChatMessage {
	return []clients.ChatMessage{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: pb.Build(videos, intent)},
	}
}
