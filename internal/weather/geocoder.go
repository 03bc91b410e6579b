package weather

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// geocodeSchema — таблица индекса город→adcode.
//
// Заполняется утилитой adcode-import из датасета AMap_adcode_citycode;
// name — полное китайское название (заканчивается на 省/市/区 и т.п.).
const geocodeSchema = `
CREATE TABLE IF NOT EXISTS adcodes (
	name     TEXT PRIMARY KEY,
	adcode   TEXT NOT NULL,
	citycode TEXT
);
`

// NotFoundError — город отсутствует в индексе AMap.
//
// Текст ошибки уходит модели как результат инструмента (не как сбой вызова):
// модель объясняет пользователю, что не так с названием города.
type NotFoundError struct {
	City string
}

// Error возвращает сообщение в том виде, в котором его видит модель.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("City %s not found in AMap database. Maybe there is a typo, or maybe the city name is not ending with 省/市/区.", e.City)
}

// Geocoder — SQLite индекс для перевода китайского названия города в adcode.
type Geocoder struct {
	db *sql.DB
}

// OpenGeocoder открывает индекс по пути к SQLite файлу.
//
// Схема создаётся при необходимости: пустой индекс валиден, просто любой
// поиск в нём завершится NotFoundError.
func OpenGeocoder(path string) (*Geocoder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open geocode db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping geocode db: %w", err)
	}
	if _, err := db.Exec(geocodeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure geocode schema: %w", err)
	}
	return &Geocoder{db: db}, nil
}

// Adcode возвращает adcode по точному названию города.
//
// Поиск точный, как в исходном датасете: 杭州市 найдётся, 杭州 — нет.
// Отсутствие города — *NotFoundError, остальные ошибки — проблемы с базой.
func (g *Geocoder) Adcode(city string) (string, error) {
	var adcode string
	err := g.db.QueryRow("SELECT adcode FROM adcodes WHERE name = ?", city).Scan(&adcode)
	if err == sql.ErrNoRows {
		return "", &NotFoundError{City: city}
	}
	if err != nil {
		return "", fmt.Errorf("geocode query failed: %w", err)
	}
	return adcode, nil
}

// Count возвращает число записей в индексе. Удобен для диагностики при старте.
func (g *Geocoder) Count() (int, error) {
	var n int
	if err := g.db.QueryRow("SELECT COUNT(*) FROM adcodes").Scan(&n); err != nil {
		return 0, fmt.Errorf("count adcodes: %w", err)
	}
	return n, nil
}

// Close закрывает базу индекса.
func (g *Geocoder) Close() error {
	return g.db.Close()
}

// ImportRow — одна строка датасета для загрузки в индекс.
type ImportRow struct {
	Name     string
	Adcode   string
	CityCode string
}

// ImportDataset создаёт схему и загружает строки датасета одной транзакцией.
//
// Повторный импорт перезаписывает существующие записи (INSERT OR REPLACE):
// датасет AMap обновляется целиком, частичных обновлений не бывает.
// Возвращает число загруженных строк.
func ImportDataset(db *sql.DB, rows []ImportRow) (int, error) {
	if _, err := db.Exec(geocodeSchema); err != nil {
		return 0, fmt.Errorf("ensure geocode schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO adcodes (name, adcode, citycode) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, row := range rows {
		if row.Name == "" || row.Adcode == "" {
			continue // строки-заголовки и мусор датасета пропускаем
		}
		if _, err := stmt.Exec(row.Name, row.Adcode, row.CityCode); err != nil {
			return 0, fmt.Errorf("insert %s: %w", row.Name, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import tx: %w", err)
	}
	return count, nil
}
