// Package sandbox содержит хранилище и среду исполнения
// пользовательских узлов.
//
// Registry ведёт реестр определений: admission-валидация кода до
// регистрации (синтаксис, наличие execute, денилист паттернов),
// персистентность через store, экспорт и импорт бандлов.
//
// Executor выполняет тела узлов в изолированном ECMAScript-runtime
// без доступа к процессу и файловой системе; host-капабилити
// (лог, сеть) передаются явно через объект context.
package sandbox
