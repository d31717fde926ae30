// Package docs POI Ingest API.
//
// Сервис загрузки точек интереса из файлов CSV, JSON и XML.
// API только читает данные, которые сохранил импортёр.
//
// Основные возможности:
// - Постраничная выборка точек с фильтрами и сортировкой
// - Список категорий и источников
// - Статистика по рейтингам
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Produces:
//	- application/json
//
// swagger:meta
package docs
