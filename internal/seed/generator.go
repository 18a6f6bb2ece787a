// Package seed fills a database with plausible fake rows, respecting
// foreign keys by inserting in dependency order and drawing child values
// from already-inserted parent keys.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"db-sync/internal/schema"
)

var seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}

// Value generates a random value for a column based on its type signature
// and name heuristics.
func Value(col *schema.Column, tableName string) any {
	kind := col.Type.Kind
	colName := strings.ToLower(col.Name)
	size := col.Type.Size

	// 1. Textual types: name heuristics first.
	if col.Textual() {
		isID := strings.HasSuffix(colName, "id") || strings.HasSuffix(colName, "_id")

		if kind == "uuid" {
			return gofakeit.UUID()
		}
		if strings.Contains(colName, "year") {
			return fmt.Sprintf("%d", 2000+seededRand.Intn(26))
		}
		if !isID && strings.Contains(colName, "email") {
			return truncate(gofakeit.Email(), size)
		}
		if !isID && strings.Contains(colName, "phone") {
			return truncate(gofakeit.Phone(), size)
		}
		if !isID && strings.Contains(colName, "first") {
			return truncate(gofakeit.FirstName(), size)
		}
		if !isID && strings.Contains(colName, "last") {
			return truncate(gofakeit.LastName(), size)
		}
		if !isID && strings.Contains(colName, "name") {
			return truncate(gofakeit.Name(), size)
		}
		if !isID && strings.Contains(colName, "address") {
			return truncate(gofakeit.Street(), size)
		}
		if !isID && strings.Contains(colName, "city") {
			return truncate(gofakeit.City(), size)
		}
		if !isID && strings.Contains(colName, "country") {
			return truncate(gofakeit.Country(), size)
		}
		if strings.Contains(colName, "zip") || strings.Contains(colName, "postal") {
			return gofakeit.Zip()
		}
		if strings.Contains(colName, "active") || strings.HasPrefix(colName, "is_") {
			if seededRand.Intn(2) == 0 {
				return "Y"
			}
			return "N"
		}
		if !isID && (strings.Contains(colName, "url") || strings.Contains(colName, "link")) {
			return truncate(gofakeit.URL(), size)
		}
		if kind == "json" || kind == "jsonb" {
			return fmt.Sprintf(`{"note": %q}`, gofakeit.BuzzWord())
		}

		if size > 0 && size < 20 {
			return truncate(gofakeit.Word(), size)
		}
		return truncate(gofakeit.Sentence(5), size)
	}

	// 2. Temporal types. Formatted strings keep all four engines happy.
	if strings.Contains(kind, "date") || strings.Contains(kind, "time") {
		val := gofakeit.DateRange(time.Now().AddDate(-1, 0, 0), time.Now())
		switch kind {
		case "date":
			return val.Format("2006-01-02")
		case "time":
			return val.Format("15:04:05")
		}
		return val.Format("2006-01-02 15:04:05")
	}

	// 3. Numeric types.
	if strings.Contains(kind, "int") {
		if strings.Contains(colName, "active") || strings.Contains(colName, "enabled") ||
			strings.HasPrefix(colName, "is_") {
			return seededRand.Intn(2)
		}
		if strings.Contains(colName, "year") {
			return 2000 + seededRand.Intn(26)
		}
		switch {
		case strings.Contains(kind, "tinyint"):
			return gofakeit.Number(0, 127)
		case strings.Contains(kind, "smallint"):
			return gofakeit.Number(1, 30000)
		}
		return gofakeit.Number(1, 50000)
	}

	if kind == "decimal" || kind == "numeric" || kind == "float" || kind == "double" || kind == "real" {
		return gofakeit.Price(0.99, 99.99)
	}

	if kind == "bool" || kind == "boolean" || kind == "bit" {
		return gofakeit.Bool()
	}

	if strings.Contains(kind, "binary") || strings.Contains(kind, "blob") || kind == "bytea" {
		return []byte(gofakeit.Word())
	}

	if col.Nullable {
		return nil
	}
	return gofakeit.Word()
}
