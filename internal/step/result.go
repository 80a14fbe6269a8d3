package step

// Result is the immutable record of one step invocation.
type Result struct {
	StepName string `json:"step_name"`
	Input    string `json:"input"`
	Output   string `json:"output"`
	Message  string `json:"message"`
	Success  bool   `json:"success"`
}

// Succeeded builds a successful result.
func Succeeded(name, input, output, message string) Result {
	return Result{StepName: name, Input: input, Output: output, Message: message, Success: true}
}

// Failed builds a failed result. Output is usually empty.
func Failed(name, input, output, message string) Result {
	return Result{StepName: name, Input: input, Output: output, Message: message, Success: false}
}
