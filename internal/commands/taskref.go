package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"tasktracker/internal/service"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	TaskNum int    // 1-based position in the list, 0 if ID is set
	ID      string // remote task id
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. No args → error: task reference required
// 2. First arg is all digits → 1-based task number
// 3. Otherwise the first arg is a task id
// 4. More than one arg → error: unexpected argument
//
// With forceID set, the first arg is always a task id.
func ParseTaskRef(args []string, forceID bool) (TaskRef, error) {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return TaskRef{}, ErrTaskRefRequired
	}
	if len(args) > 1 {
		return TaskRef{}, fmt.Errorf("unexpected argument: %s", args[1])
	}

	ref := strings.TrimSpace(args[0])
	if forceID || !isAllDigits(ref) {
		return TaskRef{ID: ref}, nil
	}

	num, err := strconv.Atoi(ref)
	if err != nil {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", ref)
	}
	if num < 1 {
		return TaskRef{}, fmt.Errorf("task number out of range: %d", num)
	}
	return TaskRef{TaskNum: num}, nil
}

// Resolve finds the referenced task in tasks, as listed.
func (r TaskRef) Resolve(tasks []service.Task) (service.Task, error) {
	if r.ID != "" {
		for _, t := range tasks {
			if t.ID == r.ID {
				return t, nil
			}
		}
		return service.Task{}, fmt.Errorf("task not found: %s", r.ID)
	}
	if r.TaskNum < 1 || r.TaskNum > len(tasks) {
		return service.Task{}, fmt.Errorf("task number out of range: %d", r.TaskNum)
	}
	return tasks[r.TaskNum-1], nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
