// Adcode-import — строит SQLite индекс город→adcode из датасета AMap.
//
// Датасет — CSV с колонками 中文名, adcode, citycode (экспорт официальной
// таблицы adcode/citycode AMap). Источник — локальный файл или объект
// в S3-совместимом хранилище.
//
// Использование:
//   ./adcode-import -csv AMap_adcode_citycode.csv -db adcode.db
//   ./adcode-import -s3 -s3-key datasets/AMap_adcode_citycode.csv
//   ./adcode-import -s3                  (печатает доступные объекты)
package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ivmalkov/lworch-ai/internal/weather"
	"github.com/ivmalkov/lworch-ai/pkg/config"
	"github.com/ivmalkov/lworch-ai/pkg/s3storage"
)

// CLI flags
var (
	flagCSV    = flag.String("csv", "", "Path to the dataset CSV (中文名, adcode, citycode)")
	flagDB     = flag.String("db", "adcode.db", "Path to the SQLite index to build")
	flagS3     = flag.Bool("s3", false, "Fetch the dataset from S3 storage (s3 section of config)")
	flagS3Key  = flag.String("s3-key", "", "Object key in the bucket; empty with -s3 lists available objects")
	flagConfig = flag.String("config", "config.yaml", "Path to config.yaml (used with -s3)")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	// 1. Переменные окружения из .env — ключи S3 приходят через ${VAR}
	_ = godotenv.Load()

	// 2. Сырые байты датасета
	raw, err := loadDataset()
	if err != nil {
		return err
	}
	if raw == nil {
		return nil // -s3 без ключа: список объектов уже напечатан
	}

	// 3. Разбор CSV
	rows, err := parseDataset(raw)
	if err != nil {
		return err
	}

	// 4. Загрузка в SQLite одной транзакцией
	db, err := sql.Open("sqlite3", *flagDB)
	if err != nil {
		return fmt.Errorf("open %s: %w", *flagDB, err)
	}
	defer db.Close()

	n, err := weather.ImportDataset(db, rows)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d cities into %s\n", n, *flagDB)
	return nil
}

// loadDataset возвращает содержимое CSV из файла или из S3.
//
// Вызов с -s3 без -s3-key печатает доступные объекты и возвращает nil.
func loadDataset() ([]byte, error) {
	if !*flagS3 {
		if *flagCSV == "" {
			return nil, fmt.Errorf("either -csv or -s3 is required")
		}
		raw, err := os.ReadFile(*flagCSV)
		if err != nil {
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		return raw, nil
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		return nil, err
	}

	store, err := s3storage.New(cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	ctx := context.Background()
	if *flagS3Key == "" {
		objects, err := store.ListFiles(ctx, "")
		if err != nil {
			return nil, err
		}
		fmt.Println("available objects (pass one as -s3-key):")
		for _, obj := range objects {
			fmt.Printf("  %s\t%d bytes\t%s\n", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02"))
		}
		return nil, nil
	}

	raw, err := store.DownloadFile(ctx, *flagS3Key)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", *flagS3Key, err)
	}
	return raw, nil
}

// parseDataset разбирает CSV датасета в строки для импорта.
//
// Первая строка — заголовок, пропускается. citycode у провинций
// и спецрайонов пустой, это нормально.
func parseDataset(raw []byte) ([]weather.ImportRow, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1 // встречаются строки без citycode

	var rows []weather.ImportRow
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		line++

		if len(record) < 2 {
			continue
		}
		name := strings.TrimSpace(record[0])
		adcode := strings.TrimSpace(record[1])
		citycode := ""
		if len(record) > 2 {
			citycode = strings.TrimSpace(record[2])
		}

		if line == 1 {
			name = strings.TrimPrefix(name, "\uFEFF") // BOM из экспорта Excel
			if name == "中文名" {
				continue
			}
		}

		rows = append(rows, weather.ImportRow{Name: name, Adcode: adcode, CityCode: citycode})
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}
	return rows, nil
}
