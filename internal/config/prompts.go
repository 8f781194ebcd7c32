package config

const TranscriptPlaceholder = "{{transcript}}"

const DefaultAnalysisPrompt = `You analyze personal reflections. Read the transcript below and extract:
- emotions: {"name", "intensity" (1-5), "topic", "context"}
- beliefs: {"name", "text", "impact" (Low|Medium|High), "topic"}
- action_items: {"name", "description", "topic", "status" (Not Started|In Progress|Completed|On Hold)}
- challenges: {"name", "text", "impact" (Low|Medium|High), "topic"}
- insights: {"name", "text", "context", "topic"}

Return ONLY a JSON object with the keys "emotions", "beliefs", "action_items",
"challenges" and "insights", each holding an array (possibly empty).

Transcript:
{{transcript}}`
