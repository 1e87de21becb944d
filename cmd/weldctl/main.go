// weldctl — консольная утилита обслуживания реестра: резервные копии,
// журнал изменений, выгрузка данных. Работает с тем же хранилищем,
// что и сервис, по тем же переменным окружения WR_*.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}
