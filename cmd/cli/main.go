package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"

	"fx-advisor/internal/stream"
	"fx-advisor/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	cmd := os.Args[1]
	args := os.Args[2:]
	switch cmd {
	case "version":
		fmt.Println("fx-advisor cli 0.1.0")
	case "health":
		runHealth()
	case "config":
		runConfig()
	case "server":
		if len(args) > 0 && args[0] == "start" {
			runServerStart()
		} else {
			fmt.Fprintf(os.Stderr, "Usage: fxa server start\n")
			os.Exit(1)
		}
	case "ask":
		if len(args) < 1 {
			fmt.Fprintf(os.Stderr, "Usage: fxa ask <question>\n")
			os.Exit(1)
		}
		runAsk(strings.Join(args, " "))
	case "chat":
		runChat(os.Stdin, os.Stdout)
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: fxa <command> [args]")
	fmt.Println("  version         - 显示版本")
	fmt.Println("  health          - 健康检查（FX_ADVISOR_API_URL 指定服务地址）")
	fmt.Println("  config          - 显示配置概要")
	fmt.Println("  server start    - 启动 API 服务（go run ./cmd/api）")
	fmt.Println("  ask <question>  - 单次提问，实时输出各分析师的事件")
	fmt.Println("  chat            - 交互式对话，保留上下文（exit/quit 退出）")
}

func runHealth() {
	out, err := getHealth()
	if err != nil {
		fmt.Fprintf(os.Stderr, "健康检查失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("api.port=%d\n", cfg.API.Port)
	fmt.Printf("api.host=%s\n", cfg.API.Host)
	fmt.Printf("advisor.timeout=%s\n", cfg.Advisor.Timeout)
	fmt.Printf("model.defaults.llm=%s\n", cfg.Model.Defaults.LLM)
	fmt.Printf("storage.cache.type=%s\n", cfg.Storage.Cache.Type)
	fmt.Printf("secrets.provider=%s\n", cfg.Secrets.Provider)
}

func runServerStart() {
	c := exec.Command("go", "run", "./cmd/api")
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Dir = "."
	if err := c.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "server start: %v\n", err)
		os.Exit(1)
	}
}

func runAsk(question string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	msgs := []stream.Message{{Role: stream.RoleUser, Content: question}}
	if _, err := converse(ctx, msgs, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "请求失败: %v\n", err)
		os.Exit(1)
	}
}

func runChat(in io.Reader, out io.Writer) {
	var history []stream.Message
	reader := bufio.NewReader(in)
	for {
		fmt.Fprint(out, "> ")
		line, err := reader.ReadString('\n')
		msg := strings.TrimSpace(line)
		if msg == "exit" || msg == "quit" {
			return
		}
		if msg != "" {
			history = append(history, stream.Message{Role: stream.RoleUser, Content: msg})
			answer, cErr := converse(context.Background(), history, out)
			if cErr != nil {
				fmt.Fprintf(out, "请求失败: %v\n", cErr)
				history = history[:len(history)-1]
			} else if answer != "" {
				history = append(history, stream.Message{Role: stream.RoleAssistant, Content: answer})
			}
		}
		if err != nil {
			return
		}
	}
}

// converse 发送一轮对话并打印事件，返回 final 事件的回答
func converse(ctx context.Context, msgs []stream.Message, out io.Writer) (string, error) {
	var answer string
	err := streamAdvisor(ctx, msgs, func(ev stream.AgentEvent) {
		printEvent(out, ev)
		if ev.Type == stream.EventFinal {
			answer = ev.Message
		}
	})
	return answer, err
}

func printEvent(w io.Writer, ev stream.AgentEvent) {
	switch ev.Type {
	case stream.EventError:
		fmt.Fprintf(w, "✗ %s\n", ev.Error)
	case stream.EventFinal:
		fmt.Fprintf(w, "\n[%s] %s\n", ev.Agent, ev.Message)
	default:
		if tool, ok := ev.Data["tool"]; ok {
			fmt.Fprintf(w, "  %s · %s(%v)\n", ev.Agent, tool, ev.Data["args"])
			return
		}
		fmt.Fprintf(w, "  %s · %s: %s\n", ev.Agent, ev.Status, ev.Message)
	}
}
