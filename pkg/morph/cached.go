package morph

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Classifier is anything that can tag a token's script.
type Classifier interface {
	IsLatinScript(token string) bool
}

// CachedClassifier memoises verdicts of an underlying classifier.
type CachedClassifier struct {
	classifier Classifier
	cache      *lru.Cache[string, bool]
}

func NewCachedClassifier(classifier Classifier, cacheSize int, logger *zap.Logger) *CachedClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, bool](cacheSize)
	if err != nil {
		// Only happens if cacheSize <= 0
		logger.Warn("invalid classifier cache size, using 1000", zap.Int("size", cacheSize), zap.Error(err))
		cache, _ = lru.New[string, bool](1000)
	}

	return &CachedClassifier{
		classifier: classifier,
		cache:      cache,
	}
}

func (c *CachedClassifier) IsLatinScript(token string) bool {
	if v, ok := c.cache.Get(token); ok {
		return v
	}
	v := c.classifier.IsLatinScript(token)
	c.cache.Add(token, v)
	return v
}

// Len reports how many verdicts are cached.
func (c *CachedClassifier) Len() int {
	return c.cache.Len()
}
