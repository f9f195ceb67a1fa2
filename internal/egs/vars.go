package egs

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"nnetctl/internal/failure"
)

// ConfigVars is the parsed configs/vars file. The model context and layer
// count keys are normalised to ints; every key is also kept verbatim in
// Values under its normalised name.
type ConfigVars struct {
	ModelLeftContext  int
	ModelRightContext int
	NumHiddenLayers   int
	Values            map[string]string
}

// ParseConfigVars reads key=value lines. left_context and right_context are
// accepted as aliases of model_left_context and model_right_context.
func ParseConfigVars(path string) (ConfigVars, error) {
	file, err := os.Open(path)
	if err != nil {
		return ConfigVars{}, failure.Wrap(failure.ErrStateMissing, "egs", "parse config vars", path, err)
	}
	defer file.Close()

	vars := ConfigVars{Values: map[string]string{}}
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return ConfigVars{}, parseError(path, lineNo, "expected key=value")
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		var target *int
		switch key {
		case "model_left_context", "left_context":
			key, target = "model_left_context", &vars.ModelLeftContext
		case "model_right_context", "right_context":
			key, target = "model_right_context", &vars.ModelRightContext
		case "num_hidden_layers":
			target = &vars.NumHiddenLayers
		}
		if target != nil {
			n, err := strconv.Atoi(value)
			if err != nil {
				return ConfigVars{}, parseError(path, lineNo, fmt.Sprintf("%s is not an integer", key))
			}
			*target = n
		}
		vars.Values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return ConfigVars{}, failure.Wrap(failure.ErrStateMissing, "egs", "parse config vars", path, err)
	}
	return vars, nil
}

func parseError(path string, line int, msg string) error {
	return failure.Wrap(failure.ErrStateMissing, "egs", "parse config vars", fmt.Sprintf("%s:%d: %s", path, line, msg), nil)
}
