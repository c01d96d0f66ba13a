package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"listai/internal/planner"
)

// User-facing apology strings returned in place of chat replies
const (
	MsgRegionUnavailable = "Sorry, the AI service is not available in your region. Please use a VPN or contact the administrator."
	MsgAuthFailed        = "AI service authentication failed. Please check the API key configuration."
	MsgRateLimited       = "The AI service rate limit has been exceeded. Please try again later."
	MsgChatTimeout       = "Sorry, the AI service took too long to respond. Please try again later."
	MsgChatFailed        = "Sorry, an error occurred while generating a response. Please try again later."
	MsgEmptyReply        = "Sorry, I could not generate a response."
)

const planSystemPrompt = `You are a professional AI planner who builds realistic, structured plans for reaching goals.

YOUR JOB:
From the goal description, the user's context and the target date, write a detailed strategy and break it into concrete tasks spread across days.

TASK DISTRIBUTION (CRITICAL):
- Tasks are DAILY by default. Every day must contain at least 1-2 tasks.
- Spread tasks EVENLY over the whole period from today to the target date.
- Do NOT pile tasks up at the start or the end of the period.
- If told not to schedule weekends, skip Saturday and Sunday.
- Number of days = days from today to the target date, inclusive.

RESPONSE FORMAT:
Reply ONLY with valid JSON and no other text:

{
  "strategy": [
    { "title": "strategy title", "description": "description" }
  ],
  "tasks": [
    { "id": "unique_id", "title": "task title", "description": "description", "priority": "low|medium|high", "day_index": number }
  ],
  "days_count": total_number_of_days
}

PLANNING RULES:

1. Distribution:
   - 1-3 tasks per day (a realistic load)
   - a 30 day period means 30-90 tasks, a 90 day period 90-270 tasks

2. Priorities:
   - high: critical, blocking tasks
   - medium: important but not blocking
   - low: nice to have

3. Quality:
   - Take the user's life context into account
   - The plan must be logical, sequential and achievable
   - If the goal is abstract, make it concrete in the strategy

4. Technical requirements:
   - Days are numbered from 1 (day 1 = today)
   - day_index is the day counted from the start of the plan
   - Task ids are unique strings
   - Do not add explanations outside the JSON`

const planCorrectionPrompt = `Your previous answer was invalid.

Return STRICTLY VALID JSON matching this schema:

{
  "strategy": [
    { "title": "string", "description": "string" }
  ],
  "tasks": [
    { "id": "string", "title": "string", "description": "string", "priority": "low|medium|high", "day_index": number }
  ],
  "days_count": number
}

Write the answer again with no extra text, only valid JSON.`

const chatSystemPrompt = `You are a helpful assistant who helps the user reach their goal.

You always know:
- the user's goal (title and context)
- the user's environment and life situation
- which tasks the user has already completed

Use this to give practical, actionable advice that accounts for the user's progress and context.`

const taskDiscussionSystemPrompt = `You are TaskAssistant, an assistant who helps the user with one specific task from their plan.

You always know:
- the user's goal (title and context)
- the user's environment and life situation
- which tasks the user has already completed
- the task being discussed (title, description, date, priority)

Use all of it to provide:
1. A short diagnosis: why the task may be hard
2. 2-4 tactics to simplify or complete the task
3. A micro-plan with steps and rough time estimates
4. A reprioritization suggestion if needed

Be practical and actionable.`

// buildPlanUserPrompt embeds the goal, the context and the deadline arithmetic
func buildPlanUserPrompt(req PlanRequest, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "GOAL DESCRIPTION:\n%s\n\nUSER CONTEXT:\n%s", req.GoalDescription, req.ContextDescription)

	if target, ok := planner.ParseTargetDate(req.TargetDate, time.UTC); ok {
		daysDiff := int(math.Ceil(target.Sub(now).Hours() / 24))
		fmt.Fprintf(&b, "\n\nTARGET DATE: %s\nDays until the target: %d\nToday: %s\n\n", req.TargetDate, daysDiff, planner.FormatDate(now.UTC()))
		fmt.Fprintf(&b, "IMPORTANT: Build the plan for ALL %d days. Every day must contain 1-3 tasks. Spread tasks EVENLY over the whole period.", daysDiff)
	} else {
		b.WriteString("\n\nIMPORTANT: Choose a realistic duration for this goal (weeks, months or a year). ")
		b.WriteString("Do not write 5-7 day plans for serious goals; estimate the real time needed. ")
		b.WriteString("Spread tasks evenly over the whole period. Every day must contain 1-3 tasks.")
	}

	if req.SkipWeekends {
		b.WriteString("\n\nDo NOT schedule any tasks on Saturdays or Sundays.")
	}

	b.WriteString("\n\nTASK:\nBuild a detailed plan with daily tasks spread evenly over the whole period.\n\nReturn only valid JSON with no extra text.")
	return b.String()
}
