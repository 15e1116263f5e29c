package grading

const (
	RUBRIC_TEMPLATE = `I'm creating an AI-driven game where the player attempts to write emails to negotiate an outcome in a scenario. Look at the scenario and come up with a rubric to grade the email.

Format each criterion on its own line as "<description> /<points>", for example:
Professional and respectful tone /2
Clearly states the request /3

Finish with a "Total: /<points>" line. The last criterion, on whether the email successfully achieves the goal, must always be included and worth 10 points, and after the total add the line "goal achieved: yes".

Ready? Here's the scenario:

%s

Rubric:`

	EVALUATION_TEMPLATE = `You are grading an email written by a player negotiating the scenario below. Score it strictly against the rubric. Do not invent criteria that are not in the rubric.

Scenario:
%s

Rubric:
%s

Email:
%s

Recipient's response:
%s

For every rubric criterion output exactly one line of the form "<criterion description>: <awarded>/<max>". Then output a "Total: <sum>/<max>" line, followed by a short rationale with a "Quote:" and "Rationale:" pair for each criterion where points were lost.

End your evaluation with the single line "Goal achieved: Yes" or "Goal achieved: No".`

	rubricTemperature     = 0.3
	evaluationTemperature = 0.2
)
