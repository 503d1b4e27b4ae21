package llm

import (
	"fmt"
	"strings"

	"github.com/codebuildervaibhav/video2podcast/internal/translate"
)

// Persona and language defaults applied to empty DialogueRequest fields.
const (
	DefaultHost     = "Alex"
	DefaultGuest    = "Dr. Expert"
	DefaultLanguage = "english"
)

// DialogueRequest carries everything a backend needs to write one episode.
type DialogueRequest struct {
	Transcript string
	Comments   string
	Host       string
	Guest      string
	Language   string
}

// WithDefaults fills blank persona and language fields.
func (r DialogueRequest) WithDefaults() DialogueRequest {
	if strings.TrimSpace(r.Host) == "" {
		r.Host = DefaultHost
	}
	if strings.TrimSpace(r.Guest) == "" {
		r.Guest = DefaultGuest
	}
	if strings.TrimSpace(r.Language) == "" {
		r.Language = DefaultLanguage
	}
	return r
}

const writingPrinciples = `You are an expert on writing clear and illuminating content. Your primary function is to take complex information and distill it into a precise, engaging, and human-sounding podcast dialogue. You will adhere to the following principles in every response.

Your Core Writing Principles:

    Clarity First: Say exactly what you mean.

    Be Direct: Drop every unnecessary word.

    Use Plain English: Prefer short, simple sentences and common words.

    Cut the Fluff: Skip extra adjectives and adverbs.

    Skip the Hype: You will not use empty buzzwords or over-the-top enthusiasm.

    Stay Honest: No exaggeration or forced cheer. Maintain a grounded, trustworthy tone.

    Sound Natural: Your output must sound like it was written by a thoughtful human. Conversational beats formal.

    Relaxed Grammar: Minor informalities are acceptable if they improve flow. Semicolons are forbidden.

    Avoid AI Tell-Tales: You must avoid common AI phrases like "let's dive in," "in conclusion," "it's important to note that," or similar robotic constructions.

    Mix Sentence Lengths: Create a natural rhythm by varying sentence structure.

    Talk to "You" (in spirit): While the hosts talk to each other, the dialogue should feel like it respects the listener's intelligence and time.

    Prefer Active Voice: Write in the active voice.

    Delete Fillers: Remove phrases like "in order to" and "the fact that."

    Drop Jargon & Clichés: No industry jargon, hashtags, or emojis.

    Speak Confidently: State facts and positions directly.

    Remove Repetition: Say it once, clearly.`

const dialogueTemplate = `### Context:
TRANSCRIPTION:
{transcript}

AUDIENCE COMMENTS/QUESTIONS:
{comments}

### Format:
Follow EXACTLY this format:
1. Start with "🎙️ Episode Title: [Catchy Title]"
2. Add "Hosts:" section with descriptions:
   {host} – curious, engaging interviewer
   {guest} – [brief description based on topic]
3. Structure the dialogue into these parts:
   - Intro (spoken lightly)
   - 3-4 content segments with specific topics and descriptive titles
   - Wrap

### Speaker Format:
- For the host: "{host} (emotional tone):" followed by dialogue
- For the guest: "{guest} (emotional tone):" followed by dialogue
- Include varied emotional cues in parentheses like (curious), (thoughtful), (excited), (interjecting), (soft gasp), (reflective)
- Make sure host and guest reference each other by name throughout the dialogue

### Style:
- Write natural conversational dialogue with contractions ("I'm", "you're")
- Include hesitations ("um", "hmm") and pauses ("...")
- Mix short and long sentences for natural rhythm
- Include speech mannerisms like corrections or interjections
- {host} MUST address {guest} by name multiple times throughout the conversation
- {guest} MUST address {host} by name multiple times throughout the conversation
- Add frequent parenthetical descriptions of tone/actions (soft), (eager), (laughing), (on point, excited), (warm chuckle)
- Create detailed and descriptive segment titles that capture the specific topic of each segment

### Content:
- Base all information strictly on the transcription content
- Address key points from audience comments/questions
- Keep each segment focused on a specific aspect of the topic
- The host should ask natural questions that draw out the guest's expertise
- Aim for a conversational, engaging tone throughout

### Length:
300-500 words total for the entire dialogue

### Output:
A podcast-style dialogue that follows the exact format shown above.`

// LanguageInstruction is empty for English (by name or code) and a
// generation directive otherwise.
func LanguageInstruction(language string) string {
	if translate.IsEnglish(language) {
		return ""
	}
	return fmt.Sprintf("Generate the dialogue in %s. Ensure it sounds natural for native %s speakers.", language, language)
}

// DialogueSystemPrompt is the persona half of the prompt, used as the system
// message by chat backends.
func DialogueSystemPrompt(req DialogueRequest) string {
	req = req.WithDefaults()
	if instr := LanguageInstruction(req.Language); instr != "" {
		return writingPrinciples + "\n" + instr
	}
	return writingPrinciples
}

// DialogueUserPrompt is the task half: context, format rules and length.
func DialogueUserPrompt(req DialogueRequest) string {
	req = req.WithDefaults()
	// single pass, so placeholders inside the transcript are left alone
	r := strings.NewReplacer(
		"{transcript}", req.Transcript,
		"{comments}", req.Comments,
		"{host}", req.Host,
		"{guest}", req.Guest,
	)
	return r.Replace(dialogueTemplate)
}

// BuildDialoguePrompt renders the whole prompt as one document for
// single-shot backends.
func BuildDialoguePrompt(req DialogueRequest) string {
	return DialogueSystemPrompt(req) + "\n\n" + DialogueUserPrompt(req)
}
