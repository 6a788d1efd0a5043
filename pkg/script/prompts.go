package script

import (
	"fmt"
	"strings"

	"github.com/harunnryd/tutorcast/pkg/dialogue"
)

const alexPersona = `ALEX (Expert Host):
- Senior software engineer with 15+ years of experience
- Patient teacher who loves making complex topics accessible
- Uses creative analogies and real-world examples
- Speaks with warm confidence, never condescending
- Often uses "we" to include the listener`

const samPersona = `SAM (Co-Host/Learner):
- Junior developer, always eager to learn
- Asks the questions that listeners are thinking
- Great at summarizing and connecting concepts
- Not afraid to say "wait, I'm confused"
- Often paraphrases to confirm understanding`

const lessonPlanTemplate = `You are an expert curriculum designer for a technical podcast.

Analyze the following content and create a structured lesson plan that will be turned into podcast episodes.

CONTENT TITLE: %s

SOURCE CONTENT:
%s

REQUIREMENTS:
- Create exactly %d lessons
- Each lesson should be self-contained but build on previous lessons
- Progress from foundational concepts to more advanced topics
- Each lesson should have 3-5 key concepts to cover

Return your response as valid JSON in this exact format:
{
    "lessons": [
        {
            "title": "Engaging lesson title",
            "description": "2-3 sentence description of what this lesson covers and why it matters",
            "key_concepts": ["concept1", "concept2", "concept3"]
        }
    ]
}

IMPORTANT: Return ONLY valid JSON, no additional text or explanation.`

const episodeTemplate = `You are a scriptwriter for an educational podcast with two hosts.

%s

%s

---

EPISODE DETAILS:
- Title: %s
- Description: %s
- Key Concepts: %s
- Episode %d of %d

SOURCE CONTENT:
%s

---

Write a natural back-and-forth dialogue between alex and sam covering the key concepts.

RULES:
- The first turn must be an "intro" segment and the last turn an "outro" segment
- Use segment types: intro, discussion, example, recap, outro
- Neither host may dominate: keep the turn split close to even
- Every turn needs non-empty spoken text, no stage directions

Return your response as valid JSON in this exact format:
{
    "title": "%s",
    "turns": [
        {"speaker": "alex", "text": "spoken words", "segment_type": "intro"}
    ]
}

IMPORTANT: Return ONLY valid JSON, no additional text or explanation.`

func buildLessonPlanPrompt(title, content string, numLessons int) string {
	return fmt.Sprintf(lessonPlanTemplate, title, content, numLessons)
}

func buildEpisodePrompt(topic dialogue.Topic, ctx EpisodeContext) string {
	return fmt.Sprintf(episodeTemplate,
		alexPersona,
		samPersona,
		topic.Title,
		topic.Description,
		strings.Join(topic.KeyPoints, ", "),
		ctx.LessonNumber,
		ctx.TotalLessons,
		ctx.SourceContent,
		topic.Title,
	)
}
