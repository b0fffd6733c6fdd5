package main

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// адрес, который слушает сервер из configs/server.yaml
const serverAddr = "localhost:8080"

func main() {
	fmt.Println("Запуск GophAssist...")

	clientName := "gophassist"
	if runtime.GOOS == "windows" {
		clientName = "gophassist.exe"
	}

	// без сертификатов сервер не стартует
	for _, f := range []string{"certs/server.crt", "certs/server.key"} {
		if _, err := os.Stat(f); err != nil {
			fmt.Printf("Не найден %s. Сгенерируй самоподписанный сертификат в ./certs\n", f)
			return
		}
	}
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		fmt.Println("Файл .env не найден, возьми за основу .env.example")
	}

	// запускаем сервер на фоне
	server := exec.Command("go", "run", "./cmd/server")
	server.Stdout = os.Stdout
	server.Stderr = os.Stderr

	if err := server.Start(); err != nil {
		fmt.Printf("Ошибка запуска сервера: %v\n", err)
		return
	}

	if !waitForPort(serverAddr, 60*time.Second) {
		fmt.Println("Сервер не поднялся за минуту, смотри runtime/logs/http.log")
		_ = server.Process.Kill()
		return
	}

	// собираем клиента
	if _, err := os.Stat(clientName); os.IsNotExist(err) {
		fmt.Println("Сборка клиента...")
		build := exec.Command("go", "build", "-o", clientName, "./cmd/gophassist")
		build.Stdout = os.Stdout
		build.Stderr = os.Stderr
		if err := build.Run(); err != nil {
			fmt.Printf("Ошибка сборки клиента: %v\n", err)
		}
		// если не винда даём права
		if runtime.GOOS != "windows" {
			os.Chmod(clientName, 0755)
		}
	}

	fmt.Println("Сервер запущен на https://" + serverAddr)
	// пишем как запускать агента
	if runtime.GOOS == "windows" {
		fmt.Println("Данный терминал не закрывай. Открой новый и запускай: .\\gophassist.exe chat")
	} else {
		fmt.Println("Данный терминал не закрывай. Открой новый и запускай: ./gophassist chat")
	}

	server.Wait()
}

// waitForPort ждёт, пока addr начнёт принимать соединения.
func waitForPort(addr string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			return true
		}
		time.Sleep(500 * time.Millisecond)
	}
	return false
}
