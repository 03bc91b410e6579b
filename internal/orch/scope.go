package orch

import "strings"

// ResolveScope выбирает класс endpoints для набора скоупов токена.
//
// Любой скоуп с префиксом global даёт глобальный доступ, иначе токен
// считается клиентским. Upstream различает только эти два класса.
func ResolveScope(scopes []string) string {
	for _, s := range scopes {
		if strings.HasPrefix(s, "global") {
			return "global"
		}
	}
	return "customer"
}
