package search

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

// Document - индексируемые поля товара
type Document struct {
	ID          int64
	Title       string
	Description string
}

// Index - полнотекстовый индекс по title и description.
// Повторная индексация ID заменяет прежнюю запись.
// Match возвращает ID записей, содержащих хотя бы один токен запроса (без учёта регистра),
// по убыванию релевантности, при равенстве по возрастанию ID
type Index interface {
	Index(ctx context.Context, doc Document) error
	// Remove для неизвестного ID ничего не делает
	Remove(ctx context.Context, id int64) error
	Match(ctx context.Context, keyword string) ([]int64, error)
	Clear(ctx context.Context) error
}

// Вес вхождения токена в поле
const (
	titleWeight       = 2
	descriptionWeight = 1
)

// Tokenize приводит текст к нижнему регистру и режет по любому символу,
// кроме букв и цифр
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// weights считает вес каждого токена документа
func weights(doc Document) map[string]float64 {
	w := make(map[string]float64)
	for _, t := range Tokenize(doc.Title) {
		w[t] += titleWeight
	}
	for _, t := range Tokenize(doc.Description) {
		w[t] += descriptionWeight
	}
	return w
}

// queryTokens возвращает уникальные токены запроса в исходном порядке
func queryTokens(keyword string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range Tokenize(keyword) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// rank упорядочивает ID по убыванию score, затем по возрастанию ID
func rank(scores map[int64]float64) []int64 {
	ids := make([]int64, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := scores[ids[i]], scores[ids[j]]
		if si != sj {
			return si > sj
		}
		return ids[i] < ids[j]
	})
	return ids
}
