package contextbuilder

import (
	"bufio"
	"os"
	"strings"

	"go.uber.org/zap"
)

// LoadStopwords reads a stop-word list from path, one word per line,
// lower-cased, ignoring blank lines and #-comments. A missing or
// unreadable file degrades to an empty set with a single warning: a
// failed stop-word load must never fail the pipeline.
func LoadStopwords(path string, logger *zap.Logger) map[string]struct{} {
	stopwords := make(map[string]struct{})
	if path == "" {
		return stopwords
	}

	f, err := os.Open(path)
	if err != nil {
		if logger != nil {
			logger.Warn("Could not load stop-word list, continuing without stop-word removal",
				zap.String("path", path),
				zap.Error(err))
		}
		return stopwords
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		stopwords[word] = struct{}{}
	}
	if err := scanner.Err(); err != nil && logger != nil {
		logger.Warn("Error while reading stop-word list",
			zap.String("path", path),
			zap.Error(err))
	}
	return stopwords
}
