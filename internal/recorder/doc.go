// Package recorder сохраняет снимки состояний пайплайнов.
//
// Recorder потребляет очередь pipeline.status и пишет последний
// снимок каждого пайплайна в таблицу pipeline_snapshots. Это
// единственный компонент системы, который работает с БД.
package recorder
