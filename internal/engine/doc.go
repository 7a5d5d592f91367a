// Package engine содержит движок выполнения графа.
//
// Включает:
//   - dag.go      — построение DAG, проверка циклов, топологический
//     порядок, готовность узлов
//   - resolver.go — перенос значений между портами и на границу
//     имён переменных sandbox-кода
//   - runner.go   — последовательное выполнение узлов, диспетчеризация
//     на встроенные handler'ы и sandbox, политика ошибок, поток логов
//
// Выполнение однопоточное и кооперативное: узлы идут по одному
// в топологическом порядке, результат узла записывается один раз.
// Независимые подграфы допускают параллелизацию, но текущая
// реализация её не использует.
package engine
