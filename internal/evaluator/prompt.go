package evaluator

import "fmt"

// promptTemplate is the structured grading prompt. It walks the model
// through a fixed sequence of analysis steps before asking for a 0-100
// score, which makes the scores far more consistent than a bare "grade
// this" request. The final line format ("Score: <int>") is what ParseScore
// looks for first.
const promptTemplate = `You are an expert machine learning instructor grading a student's answer to a theory question.

## Task
Evaluate the student's answer against the reference answer using a structured, step-by-step approach.

## Question
%s

## Reference Answer (Ideal Answer)
%s

## Student's Answer
%s

## Evaluation Process
Follow these steps systematically:

### Step 1: Content Analysis
- Identify all key concepts, principles, and facts present in the reference answer
- Check which of these concepts appear in the student's answer (even if phrased differently)
- Note any additional valid points the student may have included

### Step 2: Correctness Assessment
- **Correct Elements**: List what the student got right, including:
  * Accurate definitions or explanations
  * Correct conceptual understanding (even with different wording)
  * Valid examples or applications
- **Missing Elements**: Identify important concepts from the reference that are absent
- **Errors/Misconceptions**: Note any incorrect statements, misunderstandings, or conceptual errors

### Step 3: Semantic Equivalence Evaluation
- Consider whether the student's phrasing, while different, conveys the same meaning
- Recognize that correct answers can be expressed in multiple valid ways
- Do not penalize for stylistic differences if the core understanding is correct

### Step 4: Completeness Assessment
- Evaluate how comprehensively the student addressed the question
- Consider the depth of explanation relative to the reference answer
- Assess whether critical components are present, even if not all details are included

### Step 5: Scoring Rubric
Assign a score from 0 to 100 based on this detailed rubric:

**0-30 (Failing)**:
- Major misconceptions or fundamental errors
- Completely incorrect understanding
- No valid concepts identified

**31-50 (Insufficient)**:
- Partially correct but missing most key concepts
- Some understanding but significant gaps
- Contains notable errors alongside correct elements

**51-70 (Adequate)**:
- Mostly correct with some important gaps
- Demonstrates basic understanding of core concepts
- Minor errors or omissions that don't fundamentally undermine the answer

**71-85 (Good)**:
- Strong understanding with minor gaps or omissions
- Covers most key concepts accurately
- May lack some depth or detail compared to reference

**86-100 (Excellent)**:
- Comprehensive and accurate answer
- Demonstrates deep understanding
- Covers all or nearly all key concepts
- May include additional valid insights

### Step 6: Constructive Explanation
Provide a detailed explanation that:
- Summarizes what the student understood correctly
- Clearly identifies what was missing or incorrect
- Explains the reasoning behind the assigned score
- Offers pedagogical insights for improvement

## Response Format
Please respond in %s. Use this exact format:

**Step 1 - Content Analysis:**
[Your analysis here]

**Step 2 - Correctness Assessment:**
- Correct Elements: [list]
- Missing Elements: [list]
- Errors/Misconceptions: [list]

**Step 3 - Semantic Equivalence:**
[Your assessment of whether different phrasings convey equivalent meaning]

**Step 4 - Completeness:**
[Your evaluation of how comprehensively the question was addressed]

**Step 5 - Score Justification:**
[Explain why this specific score was assigned based on the rubric]

**Explanation:**
[Your comprehensive, pedagogical explanation suitable for student feedback]

**Score:** [A single integer from 0 to 100]

Begin your evaluation now:`

// BuildPrompt renders the grading prompt for one question/reference/answer
// triple. The language controls the language of the model's response, not
// of the rubric itself.
func BuildPrompt(question, referenceAnswer, studentAnswer, language string) string {
	return fmt.Sprintf(promptTemplate, question, referenceAnswer, studentAnswer, language)
}
