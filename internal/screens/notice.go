package screens

// Level is the severity of a transient notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a toast shown once to the user.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (s *Screen[T]) notify(level Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, Notice{Level: level, Message: message})
}

// Notices returns and clears pending notices.
func (s *Screen[T]) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}
