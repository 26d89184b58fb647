package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

// Codificaciones aceptadas para el archivo de catálogo.
const (
	EncodingAuto   = "auto"
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// decodeCatalog devuelve el contenido en UTF-8. En modo auto, si los bytes no son UTF-8 válido
// se asume ISO-8859-1 (exportaciones de Excel en Windows).
func decodeCatalog(raw []byte, encoding string) (io.Reader, error) {
	switch strings.ToLower(encoding) {
	case EncodingUTF8, "utf8":
		return strings.NewReader(strings.TrimPrefix(string(raw), "\ufeff")), nil
	case EncodingLatin1, "latin1", "iso8859-1":
		return transform.NewReader(strings.NewReader(string(raw)), charmap.ISO8859_1.NewDecoder()), nil
	case EncodingAuto, "":
		if utf8.Valid(raw) {
			return decodeCatalog(raw, EncodingUTF8)
		}
		return decodeCatalog(raw, EncodingLatin1)
	}
	return nil, fmt.Errorf("codificación no soportada %q", encoding)
}

// parseCatalog lee filas sku;name;type;active. La primera fila puede ser encabezado.
// type vacío = PRODUCT, active vacío = true.
func parseCatalog(r io.Reader) ([]*entity.Item, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var items []*entity.Item
	seen := make(map[string]int)
	first := true
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("leer CSV: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if first && strings.EqualFold(strings.TrimSpace(rec[0]), "sku") {
			first = false
			continue
		}
		first = false
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("línea %d: se esperan al menos sku;name", line)
		}
		item := &entity.Item{
			SKU:    strings.TrimSpace(rec[0]),
			Name:   strings.TrimSpace(rec[1]),
			Type:   entity.ItemTypeProduct,
			Active: true,
		}
		if item.SKU == "" || item.Name == "" {
			return nil, fmt.Errorf("línea %d: sku y name son obligatorios", line)
		}
		if len(rec) > 2 && strings.TrimSpace(rec[2]) != "" {
			switch t := strings.ToUpper(strings.TrimSpace(rec[2])); t {
			case entity.ItemTypeProduct, entity.ItemTypeService:
				item.Type = t
			default:
				return nil, fmt.Errorf("línea %d: tipo %q inválido (PRODUCT|SERVICE)", line, rec[2])
			}
		}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			active, err := parseActive(rec[3])
			if err != nil {
				return nil, fmt.Errorf("línea %d: %w", line, err)
			}
			item.Active = active
		}
		// El último SKU repetido gana, igual que el upsert.
		if idx, ok := seen[item.SKU]; ok {
			items[idx] = item
			continue
		}
		seen[item.SKU] = len(items)
		items = append(items, item)
	}
	return items, nil
}

func parseActive(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "si", "sí", "s", "activo", "yes":
		return true, nil
	case "0", "false", "no", "n", "inactivo":
		return false, nil
	}
	return false, fmt.Errorf("active %q inválido", s)
}
