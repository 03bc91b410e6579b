// Красота. Белая плашка для служебных сообщений и приглашений,
// красный для хода работы, зеленый для финальных ответов.

package main

import "github.com/charmbracelet/lipgloss"

var (
	// Белая плашка: баннер и приглашения ввода
	bannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Bold(true).
			Render

	// Вызовы инструментов по ходу раунда
	toolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")). // Красный
			Bold(true).
			Render

	// Финальный ответ модели
	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")). // Зеленый
			Bold(true).
			Render

	// Красная плашка: превышен лимит tool-вызовов
	abortStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("1")).
			Padding(0, 1).
			Bold(true).
			Render

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Render
)
